package modpack

import (
	"math/rand"

	"github.com/talgya/empire-exchange/internal/persistence"
)

// Select picks up to count empires. With balanceAuthors set, authors take
// turns in random order so a prolific author can't crowd everyone else out,
// and each author's approved empires are used before pending ones.
func Select(recs []persistence.EmpireRecord, count int, balanceAuthors bool, rng *rand.Rand) []persistence.EmpireRecord {
	if count <= 0 || len(recs) == 0 {
		return nil
	}
	if balanceAuthors {
		return authorBalanced(recs, count, rng)
	}
	return randomSample(recs, count, rng)
}

func randomSample(recs []persistence.EmpireRecord, count int, rng *rand.Rand) []persistence.EmpireRecord {
	pool := append([]persistence.EmpireRecord(nil), recs...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(count, len(pool))]
}

func authorBalanced(recs []persistence.EmpireRecord, count int, rng *rand.Rand) []persistence.EmpireRecord {
	if len(recs) <= count {
		return append([]persistence.EmpireRecord(nil), recs...)
	}

	byAuthor := map[string][]persistence.EmpireRecord{}
	var authors []string
	for _, r := range recs {
		if _, ok := byAuthor[r.Author]; !ok {
			authors = append(authors, r.Author)
		}
		byAuthor[r.Author] = append(byAuthor[r.Author], r)
	}

	selected := map[string]bool{}
	var out []persistence.EmpireRecord

	// Each pass hands every author, in a fresh random order, one more pick.
	for {
		rng.Shuffle(len(authors), func(i, j int) { authors[i], authors[j] = authors[j], authors[i] })

		for _, author := range authors {
			for _, r := range approvedFirst(byAuthor[author], rng) {
				if selected[r.ID] {
					continue
				}
				selected[r.ID] = true
				out = append(out, r)
				break
			}

			if len(out) >= count {
				return out
			}
		}
	}
}

// approvedFirst shuffles an author's empires, keeping approved ones ahead of
// pending ones.
func approvedFirst(recs []persistence.EmpireRecord, rng *rand.Rand) []persistence.EmpireRecord {
	var approved, pending []persistence.EmpireRecord
	for _, r := range recs {
		if r.Status == persistence.StatusApproved {
			approved = append(approved, r)
		} else {
			pending = append(pending, r)
		}
	}
	rng.Shuffle(len(approved), func(i, j int) { approved[i], approved[j] = approved[j], approved[i] })
	rng.Shuffle(len(pending), func(i, j int) { pending[i], pending[j] = pending[j], pending[i] })
	return append(approved, pending...)
}
