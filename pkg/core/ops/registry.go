// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps operation names to op numbers (and back), per OpType.
//
// The numbers select native kernels, so the mapping belongs to the kernel layer: the DefaultRegistry
// only holds the handful of ops used by this module's benchmarks and tools. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[OpType]map[string]int
	byNum  map[OpType]map[int]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[OpType]map[string]int),
		byNum:  make(map[OpType]map[int]string),
	}
}

// Register associates name and num for the given opType. Registering the same pair twice is a no-op,
// but registering a name or a number already associated to something else fails.
func (r *Registry) Register(opType OpType, name string, num int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName[opType] == nil {
		r.byName[opType] = make(map[string]int)
		r.byNum[opType] = make(map[int]string)
	}
	if prevNum, found := r.byName[opType][name]; found {
		if prevNum == num {
			return nil
		}
		return errors.Errorf("op %s %q already registered with number %d, can't register it as %d", opType, name, prevNum, num)
	}
	if prevName, found := r.byNum[opType][num]; found {
		return errors.Errorf("op %s number %d already registered as %q, can't register %q", opType, num, prevName, name)
	}
	r.byName[opType][name] = num
	r.byNum[opType][num] = name
	return nil
}

// Lookup returns the op number for the given name.
func (r *Registry) Lookup(opType OpType, name string) (num int, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	num, found = r.byName[opType][name]
	return
}

// Name returns the name for the given op number.
func (r *Registry) Name(opType OpType, num int) (name string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, found = r.byNum[opType][num]
	return
}

// Names returns the sorted names registered for opType.
func (r *Registry) Names(opType OpType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName[opType]))
	for name := range r.byName[opType] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks that the OpName and OpNum of op match in the registry.
func (r *Registry) Validate(op Op) error {
	num, found := r.Lookup(op.Type(), op.OpName())
	if !found {
		return errors.Errorf("op %s %q is not registered", op.Type(), op.OpName())
	}
	if num != op.OpNum() {
		return errors.Errorf("op %s %q has number %d, but it is registered as %d", op.Type(), op.OpName(), op.OpNum(), num)
	}
	return nil
}

// NewByName creates an operation of the kind matching opType, with the number registered for name.
// Broadcast and reduce operations are created with no dimensions (trailing axes and all axes respectively),
// and scalar operations with a zero scalar.
func NewByName(r *Registry, opType OpType, name string) (Op, error) {
	num, found := r.Lookup(opType, name)
	if !found {
		return nil, errors.Errorf("op %s %q is not registered", opType, name)
	}
	switch {
	case opType.IsScalar():
		return NewScalarOp(opType, name, num, 0), nil
	case opType.IsTransform():
		return NewTransformOp(opType, name, num), nil
	case opType.IsPairwise():
		return NewPairwiseOp(opType, name, num), nil
	case opType.IsBroadcast():
		return NewBroadcastOp(opType, name, num), nil
	case opType == OpTypeIndexReduce:
		return NewIndexReduceOp(name, num, false), nil
	case opType.IsReduce():
		return NewReduceOp(opType, name, num, false), nil
	case opType == OpTypeRandom:
		return NewRandomOp(name, num, 0), nil
	}
	return New(opType, name, num), nil
}

// DefaultRegistry holds the legacy ops used by the benchmarks and the command line tools.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	seed := map[OpType][]string{
		OpTypeScalar:         {"add", "sub", "mul", "div", "rdiv", "rsub", "max", "min", "pow"},
		OpTypePairwise:       {"add", "copy", "div", "mul", "sub", "rdiv", "rsub", "max", "min", "pow"},
		OpTypePairwiseBool:   {"equals", "not_equals", "greater_than", "less_than", "and", "or"},
		OpTypeBroadcast:      {"add", "sub", "mul", "div", "rdiv", "rsub", "max", "min"},
		OpTypeTransformSame:  {"abs", "neg", "sign", "square", "cumsum", "assign"},
		OpTypeTransformFloat: {"exp", "log", "sqrt", "sigmoid", "tanh"},
		OpTypeReduceSame:     {"sum", "max", "min", "prod"},
		OpTypeReduceFloat:    {"mean", "norm1", "norm2"},
		OpTypeReduceLong:     {"count_nonzero", "count_zero"},
		OpTypeIndexReduce:    {"argmax", "argmin"},
		OpTypeVariance:       {"variance", "std"},
		OpTypeRandom:         {"uniform", "gaussian", "bernoulli"},
	}
	for opType, names := range seed {
		for num, name := range names {
			if err := r.Register(opType, name, num); err != nil {
				panic(err)
			}
		}
	}
	return r
}
