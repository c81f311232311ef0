// Package workflow translates between local workflow columns/priorities and
// remote categorical states/priorities. Everything here is a pure function of
// its inputs.
package workflow
