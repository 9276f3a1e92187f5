package mmu

import "strings"

// Flags are x86-64 page-table entry bits.
type Flags uint64

// Page-table entry flags.
const (
	Present      Flags = 1 << 0
	Writable     Flags = 1 << 1
	User         Flags = 1 << 2
	WriteThrough Flags = 1 << 3
	NoCache      Flags = 1 << 4 // PCD
	Accessed     Flags = 1 << 5
	Dirty        Flags = 1 << 6
	HugePage     Flags = 1 << 7 // PS, in level 3 and level 2 entries
	Global       Flags = 1 << 8
	NoExecute    Flags = 1 << 63
)

// flagMask covers every flag bit an entry may carry.
const flagMask = Present | Writable | User | WriteThrough | NoCache |
	Accessed | Dirty | HugePage | Global | NoExecute

var flagNames = []struct {
	flag Flags
	name string
}{
	{Present, "present"},
	{Writable, "writable"},
	{User, "user"},
	{WriteThrough, "write-through"},
	{NoCache, "no-cache"},
	{Accessed, "accessed"},
	{Dirty, "dirty"},
	{HugePage, "huge"},
	{Global, "global"},
	{NoExecute, "no-execute"},
}

// Has reports whether every bit of g is set in f.
func (f Flags) Has(g Flags) bool { return f&g == g }

// String lists the set flags separated by '|'.
func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
