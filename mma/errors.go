// Copyright 2025 mmaplan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mma

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per ErrorKind. Match with errors.Is.
var (
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrUnsupported       = errors.New("unsupported configuration")
	ErrResourceLimit     = errors.New("resource limit exceeded")
)

// ErrorKind classifies a configuration error.
type ErrorKind int

const (
	// KindInvalidDescriptor: a descriptor is malformed on its own
	// (zero alignment, unknown element type, stage count below two).
	KindInvalidDescriptor ErrorKind = iota

	// KindShapeMismatch: extents that must divide each other do not.
	KindShapeMismatch

	// KindUnsupported: the element/layout/architecture combination has no
	// specialization.
	KindUnsupported

	// KindResourceLimit: the plan is consistent but does not fit the target
	// (shared memory capacity).
	KindResourceLimit
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidDescriptor:
		return "InvalidDescriptor"
	case KindShapeMismatch:
		return "ShapeMismatch"
	case KindUnsupported:
		return "Unsupported"
	case KindResourceLimit:
		return "ResourceLimit"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidDescriptor:
		return ErrInvalidDescriptor
	case KindShapeMismatch:
		return ErrShapeMismatch
	case KindUnsupported:
		return ErrUnsupported
	case KindResourceLimit:
		return ErrResourceLimit
	default:
		return nil
	}
}

// ConfigError is a build-time failure to specialize a kernel. There is no
// recoverable path: the caller must not produce a configuration.
type ConfigError struct {
	Kind    ErrorKind
	Op      string // Step that rejected the input, e.g. "mmacore.Provide"
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the sentinel for e.Kind so errors.Is(err, ErrShapeMismatch)
// works through any amount of wrapping.
func (e *ConfigError) Unwrap() error {
	return e.Kind.sentinel()
}

// Errorf builds a *ConfigError.
func Errorf(kind ErrorKind, op string, format string, args ...any) error {
	return &ConfigError{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of the first ConfigError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
