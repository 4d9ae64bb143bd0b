package fingerprint

import (
	"context"

	"github.com/rs/zerolog/log"

	"seoaudit/internal/models"
)

// Clustering thresholds. Near-duplicate similarity weighs paragraph overlap
// heavier than heading overlap.
const (
	headingWeight     = 0.3
	paragraphWeight   = 0.7
	nearDupThreshold  = 0.8
	semanticThreshold = 0.7
	// oracleCandidateCap bounds pass-three oracle calls to the first N
	// remaining pages.
	oracleCandidateCap = 10
)

// SimilarityFunc is the injected semantic-similarity oracle: it scores two
// text excerpts in [0, 1]. Implementations may be slow and fallible; the
// engine treats every error as similarity 0.
type SimilarityFunc func(ctx context.Context, a, b string) (float64, error)

// Engine clusters page fingerprints. The oracle is optional; without one
// the third (semantic) pass is skipped.
type Engine struct {
	oracle SimilarityFunc
}

// NewEngine creates a clustering engine with an optional semantic oracle.
func NewEngine(oracle SimilarityFunc) *Engine {
	return &Engine{oracle: oracle}
}

// Combined is the weighted near-duplicate similarity of two fingerprints.
func Combined(a, b Fingerprint) float64 {
	return headingWeight*Jaccard(a.Headings, b.Headings) + paragraphWeight*Jaccard(a.Paragraphs, b.Paragraphs)
}

// Cluster runs the three strictly ordered passes: exact hash groups, then
// near-duplicate Jaccard groups, then oracle-judged similar groups. A page
// assigned in one pass is excluded from every later pass; the exclusion set
// is threaded through all three passes explicitly.
func (e *Engine) Cluster(ctx context.Context, fps []Fingerprint) []models.DuplicateGroup {
	assigned := make(map[string]bool, len(fps))
	var groups []models.DuplicateGroup
	nextID := 1

	for _, g := range exactGroups(fps, assigned) {
		g.ID = nextID
		nextID++
		groups = append(groups, g)
	}
	for _, g := range e.nearDuplicateGroups(fps, assigned) {
		g.ID = nextID
		nextID++
		groups = append(groups, g)
	}
	if e.oracle != nil {
		for _, g := range e.similarGroups(ctx, fps, assigned) {
			g.ID = nextID
			nextID++
			groups = append(groups, g)
		}
	}
	return groups
}

// exactGroups groups pages by identical content hash.
func exactGroups(fps []Fingerprint, assigned map[string]bool) []models.DuplicateGroup {
	byHash := make(map[string][]Fingerprint)
	var hashOrder []string
	for _, fp := range fps {
		if assigned[fp.URL] {
			continue
		}
		if _, seen := byHash[fp.Hash]; !seen {
			hashOrder = append(hashOrder, fp.Hash)
		}
		byHash[fp.Hash] = append(byHash[fp.Hash], fp)
	}

	var groups []models.DuplicateGroup
	for _, hash := range hashOrder {
		members := byHash[hash]
		if len(members) < 2 {
			continue
		}
		group := models.DuplicateGroup{Type: models.GroupExact, Similarity: 1.0}
		for _, fp := range members {
			assigned[fp.URL] = true
			group.Members = append(group.Members, models.DuplicateMember{URL: fp.URL, Similarity: 1.0})
		}
		groups = append(groups, group)
	}
	return groups
}

// nearDuplicateGroups clusters the remaining pages by weighted Jaccard
// similarity, single-link against the group seed.
func (e *Engine) nearDuplicateGroups(fps []Fingerprint, assigned map[string]bool) []models.DuplicateGroup {
	var groups []models.DuplicateGroup
	for i := range fps {
		seed := fps[i]
		if assigned[seed.URL] {
			continue
		}
		members := []models.DuplicateMember{{URL: seed.URL, Similarity: 1.0}}
		for j := i + 1; j < len(fps); j++ {
			candidate := fps[j]
			if assigned[candidate.URL] {
				continue
			}
			sim := Combined(seed, candidate)
			if sim > nearDupThreshold {
				assigned[candidate.URL] = true
				members = append(members, models.DuplicateMember{URL: candidate.URL, Similarity: sim})
			}
		}
		if len(members) < 2 {
			continue
		}
		assigned[seed.URL] = true
		groups = append(groups, models.DuplicateGroup{
			Type:       models.GroupNearDup,
			Members:    members,
			Similarity: averageSimilarity(members),
		})
	}
	return groups
}

// similarGroups defers borderline cases to the semantic oracle, capped to
// the first remaining candidates to bound oracle calls. Oracle failures
// degrade to similarity 0 and never abort the pass.
func (e *Engine) similarGroups(ctx context.Context, fps []Fingerprint, assigned map[string]bool) []models.DuplicateGroup {
	var candidates []Fingerprint
	for _, fp := range fps {
		if assigned[fp.URL] {
			continue
		}
		candidates = append(candidates, fp)
		if len(candidates) == oracleCandidateCap {
			break
		}
	}

	var groups []models.DuplicateGroup
	for i := range candidates {
		seed := candidates[i]
		if assigned[seed.URL] {
			continue
		}
		members := []models.DuplicateMember{{URL: seed.URL, Similarity: 1.0}}
		for j := i + 1; j < len(candidates); j++ {
			candidate := candidates[j]
			if assigned[candidate.URL] {
				continue
			}
			sim, err := e.oracle(ctx, seed.Excerpt, candidate.Excerpt)
			if err != nil {
				log.Warn().Err(err).Str("url", candidate.URL).Msg("Semantic oracle failed, treating pair as dissimilar")
				sim = 0
			}
			if sim > semanticThreshold {
				assigned[candidate.URL] = true
				members = append(members, models.DuplicateMember{URL: candidate.URL, Similarity: sim})
			}
		}
		if len(members) < 2 {
			continue
		}
		assigned[seed.URL] = true
		groups = append(groups, models.DuplicateGroup{
			Type:       models.GroupSimilar,
			Members:    members,
			Similarity: averageSimilarity(members),
		})
	}
	return groups
}

func averageSimilarity(members []models.DuplicateMember) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, m := range members {
		sum += m.Similarity
	}
	return sum / float64(len(members))
}
