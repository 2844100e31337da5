package brackets

import "fmt"

// LadderMaxPool is the largest pool that is seeded straight into a ladder.
const LadderMaxPool = 16

// groupSizeTable maps a minimum pool size to the group size used from that size on.
// Both the 32-63 and the 64+ bands use groups of 8.
var groupSizeTable = []struct {
	minPool   int
	groupSize int
}{
	{minPool: 64, groupSize: 8},
	{minPool: 32, groupSize: 8},
	{minPool: 0, groupSize: 4},
}

// GroupSize returns the number of teams per group for a pool of the given size.
func GroupSize(poolSize int) int {
	for _, row := range groupSizeTable {
		if poolSize >= row.minPool {
			return row.groupSize
		}
	}
	return groupSizeTable[len(groupSizeTable)-1].groupSize
}

// GroupPlan is one group to be persisted together with its round-robin pairings.
type GroupPlan struct {
	Name     string
	TeamIDs  []int
	Pairings [][2]int
}

// MatchCount returns C(n,2) for the group.
func (g GroupPlan) MatchCount() int {
	return len(g.Pairings)
}

// BuildGroups partitions an already shuffled pool into balanced groups and generates
// every pairing inside each group. Pools of LadderMaxPool teams or fewer are rejected
// with ErrPoolTooSmallForGroups: those go to the ladder.
func BuildGroups(teamIDs []int) ([]GroupPlan, error) {
	if len(teamIDs) <= LadderMaxPool {
		return nil, fmt.Errorf("%w: %d teams", ErrPoolTooSmallForGroups, len(teamIDs))
	}

	size := GroupSize(len(teamIDs))
	chunks := Chunk(size, teamIDs)

	plans := make([]GroupPlan, 0, len(chunks))
	for i, chunk := range chunks {
		plans = append(plans, GroupPlan{
			Name:     groupName(i),
			TeamIDs:  chunk,
			Pairings: RoundRobinPairings(chunk),
		})
	}
	return plans, nil
}

// RoundRobinPairings returns every unordered pair of teams exactly once, in
// combination order: (0,1), (0,2), ..., (1,2), ...
func RoundRobinPairings(teamIDs []int) [][2]int {
	if len(teamIDs) < 2 {
		return [][2]int{}
	}
	pairs := make([][2]int, 0, len(teamIDs)*(len(teamIDs)-1)/2)
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			pairs = append(pairs, [2]int{teamIDs[i], teamIDs[j]})
		}
	}
	return pairs
}

// groupName gives groups spreadsheet-style names: A..Z, AA, AB, ...
func groupName(index int) string {
	name := ""
	for index >= 0 {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
	}
	return "Group " + name
}
