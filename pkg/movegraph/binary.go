package movegraph

import (
	"fmt"

	"github.com/lintang-b-s/graphcut/pkg"
	"github.com/lintang-b-s/graphcut/pkg/datastructure"
	"github.com/lintang-b-s/graphcut/pkg/util"
)

/*
binaryEnergy builds the network of a function of binary variables
E(x) = const + sum_i E_i(x_i) + sum_ij E_ij(x_i, x_j), x_i = 0 means the node ends on the source side.
[What Energy Functions Can Be Minimized via Graph Cuts?, Kolmogorov & Zabih]

unary terms are accumulated per node and turned into terminal arcs by finalize, so the
network only sees one AddTWeights call per node.
*/
type binaryEnergy struct {
	net      *datastructure.FlowNetwork
	e0       []int64 // cost of x = 0 (source)
	e1       []int64 // cost of x = 1 (sink)
	constant int64
	err      error
}

func newBinaryEnergy(net *datastructure.FlowNetwork) *binaryEnergy {
	return &binaryEnergy{net: net}
}

func (be *binaryEnergy) reset() {
	be.net.Reset()
	be.e0 = be.e0[:0]
	be.e1 = be.e1[:0]
	be.constant = 0
	be.err = nil
}

// add accumulates v into *dst, the first overflow is kept in be.err.
func (be *binaryEnergy) add(dst *int64, v int64) {
	if be.err != nil {
		return
	}
	sum, err := util.AddInt64(*dst, v)
	if err != nil {
		be.err = err
		return
	}
	*dst = sum
}

func (be *binaryEnergy) addVariable() datastructure.Index {
	be.e0 = append(be.e0, 0)
	be.e1 = append(be.e1, 0)
	return be.net.AddNode(1)
}

func (be *binaryEnergy) addConstant(c int64) {
	be.add(&be.constant, c)
}

// addTerm1 adds E(x=0) = e0, E(x=1) = e1.
func (be *binaryEnergy) addTerm1(x datastructure.Index, e0, e1 int64) {
	be.add(&be.e0[x], e0)
	be.add(&be.e1[x], e1)
}

func isRegular(a, b, c, d int64) bool {
	return a+d <= b+c
}

// addTerm2 adds E(0,0) = a, E(0,1) = b, E(1,0) = c, E(1,1) = d. The term must be regular.
func (be *binaryEnergy) addTerm2(x, y datastructure.Index, a, b, c, d int64) error {
	if !isRegular(a, b, c, d) {
		return fmt.Errorf("%w: non-regular term E(0,0)=%d E(0,1)=%d E(1,0)=%d E(1,1)=%d",
			pkg.ErrPreconditionViolated, a, b, c, d)
	}
	be.addTerm1(x, a, d)
	b -= a
	c -= d

	// now E(0,0) = E(1,1) = 0 and b + c >= 0
	switch {
	case b < 0:
		be.add(&be.e0[x], b)
		be.add(&be.e0[y], -b)
		return be.net.AddEdge(x, y, 0, b+c)
	case c < 0:
		be.add(&be.e0[x], -c)
		be.add(&be.e0[y], c)
		return be.net.AddEdge(x, y, b+c, 0)
	default:
		if b == 0 && c == 0 {
			return nil
		}
		return be.net.AddEdge(x, y, b, c)
	}
}

// finalize moves the unary terms onto the terminal arcs. The part paid on both sides goes
// into the constant.
func (be *binaryEnergy) finalize() error {
	for i := range be.e0 {
		x := datastructure.Index(i)
		m := util.Min(be.e0[i], be.e1[i])
		be.addConstant(m)
		if be.err != nil {
			return be.err
		}
		if err := be.net.AddTWeights(x, be.e1[i]-m, be.e0[i]-m); err != nil {
			return err
		}
	}
	return be.err
}
