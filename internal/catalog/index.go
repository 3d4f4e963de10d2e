package catalog

// Slot identifies one media position: a single entry's video (Episode == 0)
// or one series episode.
type Slot struct {
	Code    string
	Episode int
}

// Index answers fingerprint-uniqueness questions over a decoded document.
// A linear scan is enough for catalogs bounded by the code space.
type Index struct {
	doc Document
}

// IndexOf builds an index over doc. The index reads doc lazily, so it must
// be used within the same critical section that decoded it.
func IndexOf(doc Document) Index {
	return Index{doc: doc}
}

// Exists reports whether any single video or episode carries fingerprint.
func (ix Index) Exists(fingerprint string) bool {
	_, ok := ix.Find(fingerprint)
	return ok
}

// ExistsExcept is Exists ignoring one slot, used when replacing that slot's media.
func (ix Index) ExistsExcept(fingerprint string, except Slot) bool {
	if fingerprint == "" {
		return false
	}
	for _, slot := range ix.slots(fingerprint) {
		if slot != except {
			return true
		}
	}
	return false
}

// Find returns the first slot holding fingerprint.
func (ix Index) Find(fingerprint string) (Slot, bool) {
	if fingerprint == "" {
		return Slot{}, false
	}
	slots := ix.slots(fingerprint)
	if len(slots) == 0 {
		return Slot{}, false
	}
	return slots[0], true
}

func (ix Index) slots(fingerprint string) []Slot {
	var out []Slot
	for _, code := range sortedKeys(ix.doc) {
		entry := ix.doc[code]
		switch entry.Kind {
		case KindSingle:
			if entry.Video != nil && entry.Video.Fingerprint == fingerprint {
				out = append(out, Slot{Code: code})
			}
		case KindSeries:
			for _, n := range entry.EpisodeNumbers() {
				if entry.Episodes[n].Fingerprint == fingerprint {
					out = append(out, Slot{Code: code, Episode: n})
				}
			}
		}
	}
	return out
}

// Fingerprints lists every fingerprint an entry holds.
func (e Entry) Fingerprints() []string {
	switch e.Kind {
	case KindSingle:
		if e.Video != nil {
			return []string{e.Video.Fingerprint}
		}
	case KindSeries:
		out := make([]string, 0, len(e.Episodes))
		for _, n := range e.EpisodeNumbers() {
			out = append(out, e.Episodes[n].Fingerprint)
		}
		return out
	}
	return nil
}
