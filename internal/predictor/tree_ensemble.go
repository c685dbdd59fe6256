package predictor

import (
	"encoding/json"
	"fmt"
)

// TypeTreeEnsemble is the bundle type name of TreeEnsemble.
const TypeTreeEnsemble = "tree_ensemble"

// TreeEnsemble is an additive ensemble of binary regression trees, as exported
// from a gradient boosting trainer with shrinkage already folded into leaf values.
// A sample goes left when feature <= threshold.
type TreeEnsemble struct {
	nFeatures int
	baseScore float64
	trees     []Tree
}

// Tree is a flat node array; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split or a leaf.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

type treeEnsembleParams struct {
	NumFeatures int     `json:"num_features"`
	BaseScore   float64 `json:"base_score"`
	Trees       []Tree  `json:"trees"`
}

// NewTreeEnsemble validates trees and builds an ensemble over nFeatures inputs.
// Children must appear after their parent so evaluation always terminates.
func NewTreeEnsemble(nFeatures int, baseScore float64, trees []Tree) (*TreeEnsemble, error) {
	for ti, tree := range trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d has no nodes", ErrInvalidModel, ti)
		}
		for ni, n := range tree.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= nFeatures {
				return nil, fmt.Errorf("%w: tree %d node %d splits on feature %d of %d", ErrFeatureMismatch, ti, ni, n.Feature, nFeatures)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(tree.Nodes) {
					return nil, fmt.Errorf("%w: tree %d node %d has child %d", ErrInvalidModel, ti, ni, child)
				}
			}
		}
	}
	return &TreeEnsemble{nFeatures: nFeatures, baseScore: baseScore, trees: trees}, nil
}

func decodeTreeEnsemble(raw json.RawMessage, nFeatures int) (Predictor, error) {
	var p treeEnsembleParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if p.NumFeatures != nFeatures {
		return nil, fmt.Errorf("%w: model fit on %d features, spec has %d", ErrFeatureMismatch, p.NumFeatures, nFeatures)
	}
	return NewTreeEnsemble(p.NumFeatures, p.BaseScore, p.Trees)
}

// Predict implements Predictor.
func (e *TreeEnsemble) Predict(in Input) (float64, error) {
	if err := checkWidth(in.Features, e.nFeatures); err != nil {
		return 0, err
	}
	y := e.baseScore
	for _, tree := range e.trees {
		y += tree.eval(in.Features)
	}
	return y, nil
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Describe implements Predictor.
func (e *TreeEnsemble) Describe() (ModelSpec, error) {
	return describe(TypeTreeEnsemble, treeEnsembleParams{
		NumFeatures: e.nFeatures,
		BaseScore:   e.baseScore,
		Trees:       e.trees,
	})
}
