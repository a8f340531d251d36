package tui

import (
	"strconv"
	"time"
	"unicode"
)

const keyTimeout = 500 * time.Millisecond

type keyAction int

const (
	actionNone keyAction = iota
	actionPending
	actionDown
	actionUp
	actionTop
	actionBottom
	actionFilter
	actionGroup
	actionSelectGroup
	actionToggleSelect
	actionClearSelection
	actionCycleShow
	actionDelete
	actionSend
	actionEdit
	actionYank
	actionExport
	actionReload
	actionResizeLeft
	actionResizeRight
	actionHelp
	actionBack
	actionQuit
)

// keySequences maps complete key sequences to actions.
var keySequences = map[string]keyAction{
	"j":  actionDown,
	"k":  actionUp,
	"gg": actionTop,
	"G":  actionBottom,
	"f":  actionFilter,
	"/":  actionFilter,
	"gs": actionGroup,
	"A":  actionSelectGroup,
	" ":  actionToggleSelect,
	"x":  actionToggleSelect,
	"u":  actionClearSelection,
	"v":  actionCycleShow,
	"d":  actionDelete,
	"s":  actionSend,
	"E":  actionEdit,
	"y":  actionYank,
	"e":  actionExport,
	"r":  actionReload,
	"H":  actionResizeLeft,
	"L":  actionResizeRight,
	"?":  actionHelp,
	"b":  actionBack,
	"q":  actionQuit,
}

// keyPrefixes are incomplete sequences worth waiting on.
var keyPrefixes = map[string]bool{
	"g": true,
}

// VimKeyState tracks vim-style key sequences and numeric prefixes
type VimKeyState struct {
	pendingKeys   string
	numericPrefix int
	lastKeyTime   time.Time
	now           func() time.Time
}

// VimKeyResult is the outcome of one key press
type VimKeyResult struct {
	Action keyAction
	Count  int
}

// NewVimKeyState creates a new vim key state tracker
func NewVimKeyState() VimKeyState {
	return VimKeyState{now: time.Now}
}

// ProcessKey feeds one key press and returns the action it completes, if any.
func (v *VimKeyState) ProcessKey(key string) VimKeyResult {
	now := time.Now()
	if v.now != nil {
		now = v.now()
	}
	if now.Sub(v.lastKeyTime) > keyTimeout {
		v.Reset()
	}
	v.lastKeyTime = now

	// A leading 0 is not a count.
	if len(key) == 1 && v.pendingKeys == "" {
		r := rune(key[0])
		if unicode.IsDigit(r) && (v.numericPrefix > 0 || r != '0') {
			v.numericPrefix = v.numericPrefix*10 + int(r-'0')
			return VimKeyResult{Action: actionPending}
		}
	}

	v.pendingKeys += key
	if action, ok := keySequences[v.pendingKeys]; ok {
		count := v.numericPrefix
		if count == 0 {
			count = 1
		}
		v.Reset()
		return VimKeyResult{Action: action, Count: count}
	}
	if keyPrefixes[v.pendingKeys] {
		return VimKeyResult{Action: actionPending}
	}

	v.Reset()
	return VimKeyResult{Action: actionNone}
}

// Reset clears the key state
func (v *VimKeyState) Reset() {
	v.pendingKeys = ""
	v.numericPrefix = 0
}

// Pending returns what has been typed so far, for the status bar.
func (v *VimKeyState) Pending() string {
	if v.numericPrefix == 0 {
		return v.pendingKeys
	}
	return strconv.Itoa(v.numericPrefix) + v.pendingKeys
}
