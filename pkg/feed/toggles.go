package feed

// toggleLedger tracks in-flight changes to one boolean per record, such as a
// post's like or saved flag. Changes are numbered in the order they were
// issued and the remote is assumed to apply them in that order, so the value
// a record should show after a failure is the target of the latest change
// that is either still pending or confirmed.
type toggleLedger struct {
	seq     uint64
	records map[string]*toggleRecord
}

type toggleRecord struct {
	// confirmed is the last value the remote accepted, or the value the
	// record showed before the first tracked change.
	confirmed    bool
	confirmedSeq uint64
	pending      []toggleChange
}

type toggleChange struct {
	seq    uint64
	target bool
}

func newToggleLedger() *toggleLedger {
	return &toggleLedger{records: make(map[string]*toggleRecord)}
}

// begin registers a change of id from current to target and returns its
// sequence number.
func (l *toggleLedger) begin(id string, current, target bool) uint64 {
	r, ok := l.records[id]
	if !ok {
		r = &toggleRecord{confirmed: current}
		l.records[id] = r
	}
	l.seq++
	r.pending = append(r.pending, toggleChange{seq: l.seq, target: target})
	return l.seq
}

// commit records that the remote accepted change seq.
func (l *toggleLedger) commit(id string, seq uint64) {
	r, ok := l.records[id]
	if !ok {
		return
	}
	i := r.index(seq)
	if i < 0 {
		return
	}
	if seq > r.confirmedSeq {
		r.confirmed = r.pending[i].target
		r.confirmedSeq = seq
	}
	l.drop(id, r, i)
}

// rollback forgets failed change seq. It returns the value id should show
// now, and false when a later pending change still owns the local value.
func (l *toggleLedger) rollback(id string, seq uint64) (bool, bool) {
	r, ok := l.records[id]
	if !ok {
		return false, false
	}
	i := r.index(seq)
	if i < 0 {
		return false, false
	}
	if i < len(r.pending)-1 {
		l.drop(id, r, i)
		return false, false
	}

	restore := r.confirmed
	if i > 0 && r.pending[i-1].seq > r.confirmedSeq {
		restore = r.pending[i-1].target
	}
	l.drop(id, r, i)
	return restore, true
}

func (l *toggleLedger) drop(id string, r *toggleRecord, i int) {
	r.pending = append(r.pending[:i], r.pending[i+1:]...)
	if len(r.pending) == 0 {
		delete(l.records, id)
	}
}

func (r *toggleRecord) index(seq uint64) int {
	for i, c := range r.pending {
		if c.seq == seq {
			return i
		}
	}
	return -1
}
