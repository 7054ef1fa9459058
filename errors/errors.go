/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package errors defines the error taxonomy of the routing engine.
//
// Three classes matter to callers:
//
//   - configuration errors, raised when a Collector is sealed or applied;
//     they never leave a shared table half-mutated.
//   - not-found errors, raised by resolution when no signature matches.
//   - execution errors, raised by an implementation; these are returned
//     unchanged and carry no wrapper from this package.
//
// Re-applying or withdrawing the same Collector is not an error at all.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the root of every configuration failure.
	ErrConfiguration = errors.New("capx: configuration error")
	// ErrNotFound is returned when no signature matches a call.
	ErrNotFound = errors.New("capx: no implementation found")

	// ErrUnknownAxis is returned when an axis is not part of the vocabulary.
	ErrUnknownAxis = errors.New("capx: unknown address axis")
	// ErrRepeatedAxis is returned when an axis appears twice in one address or pattern.
	ErrRepeatedAxis = errors.New("capx: repeated address axis")
	// ErrEmptyValue is returned when an address segment has an empty value.
	ErrEmptyValue = errors.New("capx: empty address value")
	// ErrMalformedPattern is returned for patterns that cannot be built.
	ErrMalformedPattern = errors.New("capx: malformed pattern")
	// ErrMalformedAddress is returned when the textual form of an address cannot be parsed.
	ErrMalformedAddress = errors.New("capx: malformed address")

	// ErrDuplicateSignature is returned in strict mode when a collector registers
	// the same signature twice.
	ErrDuplicateSignature = errors.New("capx: duplicate signature")
	// ErrAmbiguousSignature is returned when two entries of the same collector
	// could match the same address with identical specificity.
	ErrAmbiguousSignature = errors.New("capx: ambiguous signature")
	// ErrSealed is returned when a sealed collector receives a registration.
	ErrSealed = errors.New("capx: collector is sealed")
	// ErrNilCollector is returned when a nil collector is applied or withdrawn.
	ErrNilCollector = errors.New("capx: nil collector")
	// ErrNilImplementation is returned when a nil implementation is registered.
	ErrNilImplementation = errors.New("capx: nil implementation")
	// ErrEmptyCapability is returned when a signature carries no capability identifier.
	ErrEmptyCapability = errors.New("capx: empty capability")

	// ErrAccountNotFound is returned when no active account exists for an address.
	ErrAccountNotFound = errors.New("capx: account not found")
	// ErrNilContext is returned when a call is issued without a Context.
	ErrNilContext = errors.New("capx: nil context")
	// ErrInvalidArgument is returned when typed call arguments do not match the
	// implementation's expectations.
	ErrInvalidArgument = errors.New("capx: invalid argument")
	// ErrConnectionClosed is returned when a connection is used while down.
	ErrConnectionClosed = errors.New("capx: connection closed")
)

// ConfigurationError reports a failure detected while building or applying a Collector.
type ConfigurationError struct {
	// Op is the operation that detected the failure (register, seal, apply, pattern).
	Op string
	// Collector is the name of the offending collector, when known.
	Collector string
	// Err is the underlying cause. It may be a multierr combination.
	Err error
}

// NewConfigurationError wraps err into a ConfigurationError.
func NewConfigurationError(op, collector string, err error) *ConfigurationError {
	return &ConfigurationError{Op: op, Collector: collector, Err: err}
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Collector == "" {
		return fmt.Sprintf("capx: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("capx: %s %q: %v", e.Op, e.Collector, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigurationError match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NotFoundError reports that resolution found no matching signature.
type NotFoundError struct {
	Capability string
	Subject    string
	Address    string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("capx: no implementation of %q for %s", e.Capability, e.Address)
	}
	return fmt.Sprintf("capx: no implementation of %q[%s] for %s", e.Capability, e.Subject, e.Address)
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound reports whether err is a resolution miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfiguration reports whether err is a configuration failure.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
