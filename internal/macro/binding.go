package macro

import "fmt"

// binding tracks open expansions of one macro and the number of local
// symbols generated at each nesting depth.
type binding struct {
	nest    int
	perNest []int // indexed by depth-1, never shrinks
}

// enter opens an expansion and returns its depth (1 for the outermost).
func (b *binding) enter() int {
	b.nest++
	for len(b.perNest) < b.nest {
		b.perNest = append(b.perNest, 0)
	}
	return b.nest
}

func (b *binding) leave() {
	if b.nest > 0 {
		b.nest--
	}
}

// mint advances the generation count at depth and returns the new ordinal.
func (b *binding) mint(depth int) int {
	b.perNest[depth-1]++
	return b.perNest[depth-1]
}

// localSymbol composes the name of a generated local label. seq is the
// invocation sequence number and is unique per invocation on its own.
func localSymbol(prefix, macro string, depth, ordinal, seq int) string {
	return fmt.Sprintf("%s%s_%d_%d_%d", prefix, macro, depth, ordinal, seq)
}
