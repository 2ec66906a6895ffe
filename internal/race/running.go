package race

import (
	"math"
	"math/rand"

	"gallop.gg/internal/protocol"
	"gallop.gg/internal/tracker"
	"gallop.gg/internal/transport/tcp"
)

func clampStarPoints(v, max uint32) uint32 {
	if v > max {
		return max
	}
	return v
}

// Coordinates the ice wall's pickup respawns at. The client has no
// dedicated spawn path for walls, so they ride the small-star item.
var iceWallSpawnPos = protocol.Vec3{X: 25, Y: -25, Z: -8010}

func (d *Director) handleLoadingComplete(client tcp.ClientID, _ protocol.RaceLoadingComplete) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	r, ok := inst.tracker.Racer(sess.characterUID)
	if !ok || r.Status != tracker.StatusLoading {
		return nil
	}
	r.Status = tracker.StatusRacing
	d.broadcastExceptLocked(inst, sess.characterUID, protocol.RaceLoadingCompleteNotify{OID: r.OID})
	return nil
}

func (d *Director) handleUserRaceFinal(client tcp.ClientID, cmd protocol.RaceUserRaceFinal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, inst := d.sessionLocked(client)
	if sess == nil || inst == nil {
		return nil
	}
	r, ok := inst.tracker.Racer(sess.characterUID)
	if !ok || r.Status != tracker.StatusRacing {
		return nil
	}
	r.Status = tracker.StatusFinishing
	r.CourseTime = cmd.CourseTime
	d.broadcastLocked(inst, protocol.RaceUserRaceFinalNotify{OID: r.OID, CourseTime: cmd.CourseTime})
	return nil
}

func (d *Director) handleResult(client tcp.ClientID, _ protocol.RaceResult) error {
	d.mu.Lock()
	sess, _ := d.sessionLocked(client)
	d.mu.Unlock()
	if sess == nil {
		return nil
	}
	var carrots int32
	if rec, ok := d.data.Character(sess.characterUID); ok {
		carrots = rec.Value().Carrots
	}
	d.transport.Queue(client, protocol.RaceResultOK{CurrentCarrots: carrots})
	return nil
}

// handleP2PResult answers with the object ids of racers that dropped so
// the client prunes its peer set.
func (d *Director) handleP2PResult(client tcp.ClientID, _ protocol.RaceP2PResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, inst := d.sessionLocked(client)
	if inst == nil {
		return nil
	}
	var gone []uint16
	for _, r := range inst.tracker.Racers() {
		if r.Status == tracker.StatusDisconnected {
			gone = append(gone, r.OID)
		}
	}
	d.transport.Queue(client, protocol.RaceP2PResultOK{OIDs: gone})
	return nil
}

func (d *Director) handleHurdleClearResult(client tcp.ClientID, cmd protocol.RaceHurdleClearResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	mode := d.reg.GameMode(uint8(inst.gameMode))

	givePoints := true
	switch cmd.Result {
	case protocol.HurdlePerfect:
		if r.Combo < jumpComboCap {
			r.Combo++
		}
		bonus := r.Combo
		if bonus > mode.MaxBonusCombo {
			bonus = mode.MaxBonusCombo
		}
		r.StarPoints = clampStarPoints(r.StarPoints+mode.PerfectJumpStarPoints+bonus*mode.UnitStarPoints, mode.StarPointsMax)
	case protocol.HurdleGood, protocol.HurdleDoubleJumpOrGlide:
		r.Combo = 0
		r.StarPoints = clampStarPoints(r.StarPoints+mode.GoodJumpStarPoints, mode.StarPointsMax)
	default:
		r.Combo = 0
		givePoints = false
	}

	reply := protocol.RaceHurdleClearResultOK{OID: r.OID, Result: cmd.Result}
	if inst.gameMode == protocol.GameModeSpeed {
		reply.JumpCombo = uint16(r.Combo)
	}
	d.transport.Queue(client, reply)

	if givePoints {
		d.transport.Queue(client, protocol.RaceStarPointGetOK{
			OID:           r.OID,
			StarPoints:    r.StarPoints,
			GiveMagicItem: d.giveMagicFlag(inst, r, cmd.Result == protocol.HurdlePerfect),
		})
	}
	return nil
}

// giveMagicFlag reports whether the star point response should direct
// the client into the magic item request. Only a saturating gain in
// magic mode does.
func (d *Director) giveMagicFlag(inst *instance, r *tracker.Racer, saturatingGain bool) uint8 {
	mode := d.reg.GameMode(uint8(inst.gameMode))
	if inst.gameMode == protocol.GameModeMagic && saturatingGain &&
		r.StarPoints >= mode.StarPointsMax && !r.HoldsMagicItem() {
		return 1
	}
	return 0
}

func (d *Director) handleStarPointGet(client tcp.ClientID, cmd protocol.RaceStarPointGet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	mode := d.reg.GameMode(uint8(inst.gameMode))
	r.StarPoints = clampStarPoints(r.StarPoints+cmd.GainedPoints, mode.StarPointsMax)
	d.transport.Queue(client, protocol.RaceStarPointGetOK{
		OID:           r.OID,
		StarPoints:    r.StarPoints,
		GiveMagicItem: d.giveMagicFlag(inst, r, true),
	})
	return nil
}

func (d *Director) handleRequestSpur(client tcp.ClientID, cmd protocol.RaceRequestSpur) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	mode := d.reg.GameMode(uint8(inst.gameMode))
	if r.StarPoints < mode.SpurConsumeStarPoints {
		return errClientCheat
	}
	r.StarPoints -= mode.SpurConsumeStarPoints

	d.transport.Queue(client, protocol.RaceRequestSpurOK{
		OID:            r.OID,
		ActiveBoosters: cmd.ActiveBoosters,
		StarPoints:     r.StarPoints,
	})
	d.transport.Queue(client, protocol.RaceStarPointGetOK{OID: r.OID, StarPoints: r.StarPoints})
	return nil
}

func (d *Director) handleStartingRate(client tcp.ClientID, cmd protocol.RaceStartingRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	if cmd.Unk1 < 1 && cmd.BoostGained < 1 {
		return errClientCheat
	}
	mode := d.reg.GameMode(uint8(inst.gameMode))
	r.StarPoints = clampStarPoints(r.StarPoints+cmd.BoostGained, mode.StarPointsMax)
	d.transport.Queue(client, protocol.RaceStarPointGetOK{OID: r.OID, StarPoints: r.StarPoints})
	return nil
}

// handleUserPos regenerates the magic gauge when applicable and drives
// item proximity tracking: a racer is sent each nearby item's spawn
// exactly once per approach.
func (d *Director) handleUserPos(client tcp.ClientID, cmd protocol.RaceUserPos) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil || r.Status != tracker.StatusRacing {
		return nil
	}

	now := d.clock()
	mode := d.reg.GameMode(uint8(inst.gameMode))
	if inst.gameMode == protocol.GameModeMagic && now.After(inst.raceStartAt) && !r.HoldsMagicItem() {
		r.StarPoints = clampStarPoints(r.StarPoints+mode.NoItemHeldBoostAmount, mode.StarPointsMax)
	}

	for _, it := range inst.tracker.Items() {
		if !it.Available {
			continue
		}
		if distance(cmd.Position, it.Position) < itemTrackRange {
			if inst.tracker.Track(r.CharacterUID, it.OID) {
				d.transport.Queue(client, d.itemSpawnMsg(inst, it))
			}
		} else {
			inst.tracker.Untrack(r.CharacterUID, it.OID)
		}
	}
	return nil
}

func distance(a, b protocol.Vec3) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (d *Director) itemSpawnMsg(inst *instance, it *tracker.Item) protocol.RaceItemSpawn {
	return protocol.RaceItemSpawn{
		ItemOID:     it.OID,
		ItemType:    it.ItemType,
		Position:    it.Position,
		Orientation: it.Orientation,
		RemoveDelay: inst.removeDelay[it.ItemType],
	}
}

func (d *Director) handleUserRaceItemGet(client tcp.ClientID, cmd protocol.RaceUserRaceItemGet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	it, ok := inst.tracker.TakeItem(cmd.ItemOID)
	if !ok {
		// Another racer grabbed it first; the pickup race is benign.
		return nil
	}

	mode := d.reg.GameMode(uint8(inst.gameMode))
	switch inst.gameMode {
	case protocol.GameModeSpeed:
		switch it.ItemType {
		case 40000:
			// The big star fills the gauge up to the next full multiple.
			r.StarPoints = clampStarPoints((r.StarPoints/it.ItemType+1)*it.ItemType, mode.StarPointsMax)
		default:
			r.StarPoints = clampStarPoints(r.StarPoints+it.ItemType, mode.StarPointsMax)
		}
	case protocol.GameModeMagic:
		if !r.HoldsMagicItem() {
			r.MagicItem = randomMagicItem()
		}
	}

	d.broadcastLocked(inst, protocol.RaceItemGet{
		CharacterOID: r.OID,
		ItemOID:      it.OID,
		ItemType:     it.ItemType,
	})

	roomUID := inst.roomUID
	itemOID := it.OID
	d.sched.Queue(func() { d.respawnItem(roomUID, itemOID) }, itemRespawnDelay)
	return nil
}

// respawnItem fires after the pickup delay and re-announces the slot to
// every client. A room gone in the meantime drops the task.
func (d *Director) respawnItem(roomUID uint32, itemOID uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst := d.instances[roomUID]
	if inst == nil {
		return
	}
	it, ok := inst.tracker.RespawnItem(itemOID)
	if !ok {
		return
	}
	d.broadcastLocked(inst, d.itemSpawnMsg(inst, it))
}

func randomMagicItem() uint32 {
	pool := [...]uint32{protocol.MagicItemBolt, protocol.MagicItemShield, protocol.MagicItemIceWall}
	return pool[rand.Intn(len(pool))]
}

func (d *Director) handleRequestMagicItem(client tcp.ClientID, cmd protocol.RaceRequestMagicItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.CharacterOID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	if r.HoldsMagicItem() {
		d.log.Printf("[race] room %d: racer %d requested a magic item while holding one", inst.roomUID, r.OID)
		return nil
	}
	r.MagicItem = randomMagicItem()
	r.StarPoints = 0
	d.transport.Queue(client, protocol.RaceRequestMagicItemOK{OID: r.OID, MagicItemID: r.MagicItem})
	d.broadcastExceptLocked(inst, r.CharacterUID, protocol.RaceRequestMagicItemNotify{
		MagicItemID: r.MagicItem,
		OID:         r.OID,
	})
	return nil
}

func (d *Director) handleUseMagicItem(client tcp.ClientID, cmd protocol.RaceUseMagicItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}

	d.transport.Queue(client, protocol.RaceUseMagicItemOK{
		OID:         cmd.OID,
		MagicItemID: cmd.MagicItemID,
		HasTarget:   cmd.HasTarget,
		TargetOID:   cmd.TargetOID,
		Optional3:   cmd.Optional3,
		Optional4:   cmd.Optional4,
	})

	switch cmd.MagicItemID {
	case protocol.MagicItemBolt:
		target := cmd.TargetOID
		if cmd.HasTarget == 0 {
			target = inst.firstOtherRacingOID(r.OID)
		}
		if target != 0 {
			d.boltHitLocked(inst, target)
		}
	case protocol.MagicItemIceWall:
		// The wall drops a pickup slot instead of a notify; clients
		// render it from the spawn.
		it := inst.tracker.SpawnItem(10000, iceWallSpawnPos, [4]float32{0, 0, 0, 1})
		d.broadcastLocked(inst, d.itemSpawnMsg(inst, it))
	default:
		d.broadcastExceptLocked(inst, r.CharacterUID, protocol.RaceUseMagicItemNotify{
			OID:         cmd.OID,
			MagicItemID: cmd.MagicItemID,
			HasTarget:   cmd.HasTarget,
			TargetOID:   cmd.TargetOID,
			Optional3:   cmd.Optional3,
			Optional4:   cmd.Optional4,
		})
	}
	r.MagicItem = 0
	return nil
}

// boltHitLocked lands a bolt: the victim loses any held item and every
// client sees the hit.
func (d *Director) boltHitLocked(inst *instance, targetOID uint16) {
	if victim, ok := inst.tracker.RacerByOID(targetOID); ok {
		victim.MagicItem = 0
	}
	d.broadcastLocked(inst, protocol.RaceUseMagicItemNotify{
		OID:         targetOID,
		MagicItemID: protocol.MagicItemBolt,
		HasTarget:   1,
		TargetOID:   targetOID,
		Optional3:   1.0,
		Optional4:   3.0,
	})
}

func (inst *instance) firstOtherRacingOID(except uint16) uint16 {
	for _, other := range inst.tracker.Racers() {
		if other.OID != except && other.Status == tracker.StatusRacing {
			return other.OID
		}
	}
	return 0
}

func (d *Director) handleStartMagicTarget(client tcp.ClientID, cmd protocol.RaceStartMagicTarget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, _, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	inst.targeting[cmd.OID] = 0
	return nil
}

// handleChangeMagicTargetNotify forwards the attacker's reticle to the
// targeted racer.
func (d *Director) handleChangeMagicTargetNotify(client tcp.ClientID, cmd protocol.RaceChangeMagicTargetNotify) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, _, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	inst.targeting[cmd.OID] = cmd.TargetOID
	if target, ok := inst.tracker.RacerByOID(cmd.TargetOID); ok {
		if tc, ok := inst.clients[target.CharacterUID]; ok {
			d.transport.Queue(tc, cmd)
		}
	}
	return nil
}

// handleChangeMagicTargetOK confirms the bolt on the current target.
func (d *Director) handleChangeMagicTargetOK(client tcp.ClientID, cmd protocol.RaceChangeMagicTargetOK) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, r, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	d.boltHitLocked(inst, cmd.TargetOID)
	r.MagicItem = 0
	delete(inst.targeting, cmd.OID)
	return nil
}

func (d *Director) handleCancelMagicTarget(client tcp.ClientID, cmd protocol.RaceCancelMagicTarget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, _, err := d.racerLocked(client, cmd.OID)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}
	targetOID, tracking := inst.targeting[cmd.OID]
	delete(inst.targeting, cmd.OID)
	if !tracking || targetOID == 0 {
		return nil
	}
	if target, ok := inst.tracker.RacerByOID(targetOID); ok {
		if tc, ok := inst.clients[target.CharacterUID]; ok {
			d.transport.Queue(tc, protocol.RaceRemoveMagicTarget{OID: cmd.OID})
		}
	}
	return nil
}
