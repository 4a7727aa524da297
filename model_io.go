package lgbm

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
	"github.com/YuminosukeSato/lgbm/pkg/log"
)

// jsonModel is the top-level structure of a dumped model, laid out like
// LightGBM's dump_model output.
type jsonModel struct {
	Name                string                 `json:"name"`
	Version             string                 `json:"version"`
	NumClass            int                    `json:"num_class"`
	NumTreePerIteration int                    `json:"num_tree_per_iteration"`
	MaxFeatureIdx       int                    `json:"max_feature_idx"`
	Objective           string                 `json:"objective"`
	FeatureNames        []string               `json:"feature_names"`
	FeatureInfos        map[string]featureInfo `json:"feature_infos,omitempty"`
	TreeInfo            []jsonTreeInfo         `json:"tree_info"`
}

type featureInfo struct {
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
	NumBins  int     `json:"num_bins"`
}

type jsonTreeInfo struct {
	TreeIndex     int          `json:"tree_index"`
	NumLeaves     int          `json:"num_leaves"`
	Shrinkage     float64      `json:"shrinkage"`
	TreeStructure jsonTreeNode `json:"tree_structure"`
}

// jsonTreeNode is an internal node when LeftChild is set, a leaf otherwise.
type jsonTreeNode struct {
	SplitIndex    int           `json:"split_index,omitempty"`
	SplitFeature  int           `json:"split_feature,omitempty"`
	SplitGain     float64       `json:"split_gain,omitempty"`
	Threshold     float64       `json:"threshold,omitempty"`
	DecisionType  string        `json:"decision_type,omitempty"`
	DefaultLeft   bool          `json:"default_left,omitempty"`
	InternalValue float64       `json:"internal_value,omitempty"`
	InternalCount int           `json:"internal_count,omitempty"`
	LeftChild     *jsonTreeNode `json:"left_child,omitempty"`
	RightChild    *jsonTreeNode `json:"right_child,omitempty"`

	LeafIndex  int     `json:"leaf_index,omitempty"`
	LeafValue  float64 `json:"leaf_value,omitempty"`
	LeafWeight float64 `json:"leaf_weight,omitempty"`
	LeafCount  int     `json:"leaf_count,omitempty"`
}

const modelVersion = "v4"

// DumpModel writes the model as JSON.
// This is equivalent to LGBM_BoosterDumpModel in the C API.
func (b *Booster) DumpModel(w io.Writer) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	objective := b.obj.Name()
	if bo, ok := b.obj.(binaryObjective); ok {
		objective += " sigmoid:" + strconv.FormatFloat(bo.sigmoid, 'g', -1, 64)
	}
	m := jsonModel{
		Name:                "tree",
		Version:             modelVersion,
		NumClass:            1,
		NumTreePerIteration: 1,
		MaxFeatureIdx:       b.numFeature - 1,
		Objective:           objective,
		FeatureNames:        b.featureNames,
		TreeInfo:            make([]jsonTreeInfo, len(b.trees)),
	}
	if b.train != nil {
		m.FeatureInfos = make(map[string]featureInfo, b.numFeature)
		for f, bm := range b.train.mappers {
			m.FeatureInfos[b.featureNames[f]] = featureInfo{MinValue: bm.MinValue, MaxValue: bm.MaxValue, NumBins: bm.NumBins()}
		}
	}
	for i, t := range b.trees {
		m.TreeInfo[i] = jsonTreeInfo{
			TreeIndex:     i,
			NumLeaves:     t.NumLeaves,
			Shrinkage:     t.Shrinkage,
			TreeStructure: t.toJSON(0),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&m); err != nil {
		return errors.NewModelError("DumpModel", "encode", err)
	}
	return nil
}

// toJSON renders the subtree rooted at node; a negative node is a leaf.
func (t *tree) toJSON(node int) jsonTreeNode {
	if len(t.SplitFeature) == 0 || node < 0 {
		leaf := 0
		if node < 0 {
			leaf = ^node
		}
		return jsonTreeNode{
			LeafIndex:  leaf,
			LeafValue:  t.LeafValue[leaf],
			LeafWeight: t.LeafWeight[leaf],
			LeafCount:  t.LeafCount[leaf],
		}
	}
	left := t.toJSON(t.LeftChild[node])
	right := t.toJSON(t.RightChild[node])
	return jsonTreeNode{
		SplitIndex:    node,
		SplitFeature:  t.SplitFeature[node],
		SplitGain:     t.SplitGain[node],
		Threshold:     t.Threshold[node],
		DecisionType:  "<=",
		DefaultLeft:   true,
		InternalValue: t.InternalValue[node],
		InternalCount: t.InternalCount[node],
		LeftChild:     &left,
		RightChild:    &right,
	}
}

// LoadModel reads a model written by DumpModel. The returned booster can
// predict but has no training data, so training calls fail.
// This is equivalent to LGBM_BoosterLoadModelFromString in the C API.
func LoadModel(r io.Reader) (*Booster, error) {
	const op = "LoadModel"
	var m jsonModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.NewModelError(op, "decode", err)
	}
	if m.NumClass > 1 || m.NumTreePerIteration > 1 {
		return nil, errors.NewModelError(op, "multiclass models are not supported", nil)
	}

	cfg := defaultConfig()
	name, sigmoid := parseObjectiveString(m.Objective)
	obj, ok := objectiveAliases[name]
	if !ok {
		return nil, errors.NewModelError(op, "unsupported objective "+m.Objective, nil)
	}
	cfg.Objective = obj
	if sigmoid > 0 {
		cfg.Sigmoid = sigmoid
	}
	objective, err := newObjective(cfg)
	if err != nil {
		return nil, errors.NewModelError(op, "objective", err)
	}

	numFeature := m.MaxFeatureIdx + 1
	if numFeature <= 0 {
		return nil, errors.NewModelError(op, "model has no features", nil)
	}
	names := m.FeatureNames
	if len(names) != numFeature {
		return nil, errors.NewModelError(op, "feature_names does not match max_feature_idx", nil)
	}

	trees := make([]*tree, len(m.TreeInfo))
	for i := range m.TreeInfo {
		t, err := treeFromJSON(&m.TreeInfo[i], numFeature)
		if err != nil {
			return nil, errors.NewModelError(op, "tree "+strconv.Itoa(i), err)
		}
		trees[i] = t
	}

	id := uuid.NewString()
	b := &Booster{
		id:           id,
		cfg:          cfg,
		obj:          objective,
		logger:       componentLogger("lgbm.booster", cfg.Verbosity).With(log.BoosterIDKey, id, log.ObjectiveKey, objective.Name()),
		trees:        trees,
		numFeature:   numFeature,
		featureNames: names,
		bestIter:     -1,
	}
	b.logger.Info("Model loaded", log.TreesKey, len(trees), log.FeaturesKey, numFeature)
	return b, nil
}

func parseObjectiveString(s string) (string, float64) {
	var name string
	sigmoid := 0.0
	for i, tok := range strings.Fields(s) {
		if i == 0 {
			name = tok
			continue
		}
		if v, ok := strings.CutPrefix(tok, "sigmoid:"); ok {
			sigmoid, _ = strconv.ParseFloat(v, 64)
		}
	}
	return name, sigmoid
}

func treeFromJSON(info *jsonTreeInfo, numFeature int) (*tree, error) {
	n := info.NumLeaves
	if n < 1 {
		return nil, errors.Newf("invalid num_leaves %d", n)
	}
	t := &tree{
		NumLeaves:     n,
		Shrinkage:     info.Shrinkage,
		SplitFeature:  make([]int, n-1),
		Threshold:     make([]float64, n-1),
		SplitGain:     make([]float64, n-1),
		LeftChild:     make([]int, n-1),
		RightChild:    make([]int, n-1),
		InternalValue: make([]float64, n-1),
		InternalCount: make([]int, n-1),
		LeafValue:     make([]float64, n),
		LeafCount:     make([]int, n),
		LeafWeight:    make([]float64, n),
		LeafParent:    make([]int, n),
		LeafDepth:     make([]int, n),
	}
	seen := make([]bool, n)
	seenNode := make([]bool, n-1)
	var walk func(nd *jsonTreeNode, parent, depth int) (int, error)
	walk = func(nd *jsonTreeNode, parent, depth int) (int, error) {
		if nd.LeftChild == nil || nd.RightChild == nil {
			i := nd.LeafIndex
			if i < 0 || i >= n || seen[i] {
				return 0, errors.Newf("invalid leaf_index %d", i)
			}
			seen[i] = true
			t.LeafValue[i] = nd.LeafValue
			t.LeafCount[i] = nd.LeafCount
			t.LeafWeight[i] = nd.LeafWeight
			t.LeafParent[i] = parent
			t.LeafDepth[i] = depth
			return ^i, nil
		}
		i := nd.SplitIndex
		if i < 0 || i >= n-1 || seenNode[i] {
			return 0, errors.Newf("invalid split_index %d", i)
		}
		seenNode[i] = true
		if nd.SplitFeature < 0 || nd.SplitFeature >= numFeature {
			return 0, errors.Newf("invalid split_feature %d", nd.SplitFeature)
		}
		if nd.DecisionType != "" && nd.DecisionType != "<=" {
			return 0, errors.Newf("unsupported decision_type %q", nd.DecisionType)
		}
		t.SplitFeature[i] = nd.SplitFeature
		t.Threshold[i] = nd.Threshold
		t.SplitGain[i] = nd.SplitGain
		t.InternalValue[i] = nd.InternalValue
		t.InternalCount[i] = nd.InternalCount
		l, err := walk(nd.LeftChild, i, depth+1)
		if err != nil {
			return 0, err
		}
		r, err := walk(nd.RightChild, i, depth+1)
		if err != nil {
			return 0, err
		}
		t.LeftChild[i], t.RightChild[i] = l, r
		return i, nil
	}
	root, err := walk(&info.TreeStructure, -1, 0)
	if err != nil {
		return nil, err
	}
	if n > 1 && root != 0 {
		return nil, errors.Newf("root must be split_index 0, got %d", root)
	}
	for i, ok := range seen {
		if !ok {
			return nil, errors.Newf("leaf %d missing from tree structure", i)
		}
	}
	for i, ok := range seenNode {
		if !ok {
			return nil, errors.Newf("split %d missing from tree structure", i)
		}
	}
	return t, nil
}
