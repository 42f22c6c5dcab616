package zatca

// ChainEntry is one stored link of a tenant's hash chain, ordered by ICV.
type ChainEntry struct {
	ICV          int64
	PreviousHash string
	Hash         string
	XML          string
}

// VerifyChain checks a stored chain: counters are contiguous, each entry's
// previous hash equals the hash of the entry before it (seed for ICV 1), and
// each stored hash matches the recomputed digest of its XML. It returns a
// *ChainBreakError for the first entry that fails.
//
// A slice that starts above ICV 1 is verified as a window: its first
// previous hash is trusted as given.
func VerifyChain(seed string, entries []ChainEntry) error {
	var prev *ChainEntry
	for i := range entries {
		e := &entries[i]

		switch {
		case prev == nil && e.ICV < 1:
			return &ChainBreakError{ICV: e.ICV, Reason: "counter below 1"}
		case prev == nil && e.ICV == 1 && e.PreviousHash != seed:
			return &ChainBreakError{ICV: e.ICV, Reason: "first invoice does not reference the seed hash"}
		case prev != nil && e.ICV != prev.ICV+1:
			return &ChainBreakError{ICV: e.ICV, Reason: "counter gap after ICV " + formatICV(prev.ICV)}
		case prev != nil && e.PreviousHash != prev.Hash:
			return &ChainBreakError{ICV: e.ICV, Reason: "previous hash does not match ICV " + formatICV(prev.ICV)}
		}

		recomputed, err := HashXML(e.XML)
		if err != nil {
			return err
		}
		if recomputed != e.Hash {
			return &ChainBreakError{ICV: e.ICV, Reason: "stored hash does not match document"}
		}
		prev = e
	}
	return nil
}
