package protocol

type RanchEnterRanch struct {
	CharacterUID    uint32
	OneTimePassword uint32
	RancherUID      uint32
}

func (RanchEnterRanch) ID() CommandID { return CmdRanchEnterRanch }

func (m *RanchEnterRanch) Decode(r *Reader) error {
	m.CharacterUID = r.Uint32()
	m.OneTimePassword = r.Uint32()
	m.RancherUID = r.Uint32()
	return r.Err()
}

func (m RanchEnterRanch) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	w.Uint32(m.OneTimePassword)
	w.Uint32(m.RancherUID)
	return w.Err()
}

// RanchVisitor is a roster entry in the ranch payloads.
type RanchVisitor struct {
	UID       uint32
	Name      string
	Level     uint16
	Character Character
	Horse     Horse
}

func (v RanchVisitor) Encode(w *Writer) {
	w.Uint32(v.UID)
	w.String(v.Name)
	w.Uint16(v.Level)
	v.Character.Encode(w)
	v.Horse.Encode(w)
}

type RanchEnterRanchOK struct {
	RancherUID  uint32
	RancherName string
	RanchName   string
	Visitors    []RanchVisitor
}

func (RanchEnterRanchOK) ID() CommandID { return CmdRanchEnterRanchOK }

func (m RanchEnterRanchOK) Encode(w *Writer) error {
	w.Uint32(m.RancherUID)
	w.String(m.RancherName)
	w.String(m.RanchName)
	w.Uint8(uint8(len(m.Visitors)))
	for _, v := range m.Visitors {
		v.Encode(w)
	}
	return w.Err()
}

type RanchEnterRanchCancel struct{}

func (RanchEnterRanchCancel) ID() CommandID        { return CmdRanchEnterRanchCancel }
func (m RanchEnterRanchCancel) Encode(w *Writer) error { return w.Err() }

type RanchEnterRanchNotify struct {
	Visitor RanchVisitor
}

func (RanchEnterRanchNotify) ID() CommandID { return CmdRanchEnterRanchNotify }

func (m RanchEnterRanchNotify) Encode(w *Writer) error {
	m.Visitor.Encode(w)
	return w.Err()
}

type RanchLeaveRanch struct{}

func (RanchLeaveRanch) ID() CommandID          { return CmdRanchLeaveRanch }
func (m *RanchLeaveRanch) Decode(r *Reader) error { return r.Err() }

type RanchLeaveRanchOK struct{}

func (RanchLeaveRanchOK) ID() CommandID        { return CmdRanchLeaveRanchOK }
func (m RanchLeaveRanchOK) Encode(w *Writer) error { return w.Err() }

type RanchLeaveRanchNotify struct {
	CharacterUID uint32
}

func (RanchLeaveRanchNotify) ID() CommandID { return CmdRanchLeaveRanchNotify }

func (m RanchLeaveRanchNotify) Encode(w *Writer) error {
	w.Uint32(m.CharacterUID)
	return w.Err()
}

type RanchChat struct {
	Message string
}

func (RanchChat) ID() CommandID { return CmdRanchChat }

func (m *RanchChat) Decode(r *Reader) error {
	m.Message = r.String()
	return r.Err()
}

type RanchChatNotify struct {
	Name    string
	Message string
}

func (RanchChatNotify) ID() CommandID { return CmdRanchChatNotify }

func (m RanchChatNotify) Encode(w *Writer) error {
	w.String(m.Name)
	w.String(m.Message)
	return w.Err()
}

type RanchHeartbeat struct{}

func (RanchHeartbeat) ID() CommandID          { return CmdRanchHeartbeat }
func (m *RanchHeartbeat) Decode(r *Reader) error { return r.Err() }
