// Package app defines the CLI options contract used by the application
// bootstrapper.
package app

import "github.com/spf13/pflag"

// NamedFlagSets groups flag sets into named sections, preserving the order
// sections were added so help output stays stable.
type NamedFlagSets struct {
	// Order lists section names in registration order.
	Order []string
	// FlagSets maps section name to its flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given section, creating it on first
// use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = make(map[string]*pflag.FlagSet)
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

// CliOptions is implemented by application option structs so the
// bootstrapper can register flags and run completion and validation before
// the run function starts.
type CliOptions interface {
	// Flags returns the flag sections to register on the root command.
	Flags() NamedFlagSets
	// Complete fills in defaults derived from other options.
	Complete() error
	// Validate checks that the options are usable.
	Validate() error
}
