package hours

// Deduplicate merges per-email records into people in a single pass. A record
// joins the person already holding its email, else the one holding its name,
// else it starts a new person. Two people created separately are never merged
// afterwards, even if a later record links them.
func Deduplicate(works []WorkByEmail) []WorkByPerson {
	emailToIndex := make(map[string]int, len(works))
	nameToIndex := make(map[string]int, len(works))
	out := make([]WorkByPerson, 0, len(works))

	for _, work := range works {
		if idx, ok := emailToIndex[work.Email]; ok {
			out[idx].Merge(work)
			nameToIndex[work.Name] = idx

			continue
		}

		if idx, ok := nameToIndex[work.Name]; ok {
			out[idx].Merge(work)
			emailToIndex[work.Email] = idx

			continue
		}

		idx := len(out)
		out = append(out, NewWorkByPerson(work))
		emailToIndex[work.Email] = idx
		nameToIndex[work.Name] = idx
	}

	return out
}

// FromEmails promotes every record to its own person, skipping deduplication.
func FromEmails(works []WorkByEmail) []WorkByPerson {
	out := make([]WorkByPerson, len(works))

	for i, work := range works {
		out[i] = NewWorkByPerson(work)
	}

	return out
}
