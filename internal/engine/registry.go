package engine

import (
	"github.com/danielpatrickdp/lods-sim/internal/baseline"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
)

// constructors maps each algorithm tag to its implementation.
var constructors = map[config.Algorithm]func() protocol.Algorithm{
	config.AlgorithmLodsMTI: func() protocol.Algorithm { return NewLodsMTI() },
	config.AlgorithmCRMTI:   func() protocol.Algorithm { return baseline.NewCRMTI() },
}

// NewAlgorithm returns a fresh, uninitialized instance of a.
func NewAlgorithm(a config.Algorithm) (protocol.Algorithm, error) {
	ctor, ok := constructors[a]
	if !ok {
		err := errors.Mark(errors.Newf("unknown algorithm %q", a), config.ErrInvalidConfiguration)
		return nil, errors.WithHintf(err, "choose one of %v", config.Algorithms())
	}
	return ctor(), nil
}
