// Package output renders queue data for the non-interactive commands.
package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/feed"
)

var (
	timestampColor = color.New(color.FgHiBlack)
	queueColor     = color.New(color.FgCyan)
	exclusiveColor = color.New(color.FgYellow)
	upColor        = color.New(color.FgRed)
	downColor      = color.New(color.FgGreen)
	mutedColor     = color.New(color.FgHiBlack)
	headerColor    = color.New(color.FgWhite, color.Bold)
)

// PrintQueues writes queue summaries as a table.
func PrintQueues(w io.Writer, queues []api.QueueSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Queue", "Broker", "Stored", "Exclusive"})
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetAutoWrapText(false)

	for _, q := range queues {
		id := "-"
		stored := "-"
		if q.Stored() {
			id = strconv.FormatUint(*q.QueueID, 10)
			stored = strconv.Itoa(q.MessageCountInDB)
		}
		excl := ""
		if q.Exclusive {
			excl = exclusiveColor.Sprint("yes")
		}
		table.Append([]string{id, queueColor.Sprint(q.Name), strconv.Itoa(q.MessageCountInRMQ), stored, excl})
	}
	table.Render()
}

// PrintEnvInfo writes the server's broker connection details.
func PrintEnvInfo(w io.Writer, info api.EnvInfo) {
	c := info.Connection
	fmt.Fprintf(w, "%s %s (%s, vhost %s)\n",
		headerColor.Sprint("Broker:"), c.ServerName, c.Domain, c.VHost)
}

// WatchPrinter prints one line per counter snapshot, showing only queues
// whose count changed since the previous one.
type WatchPrinter struct {
	w    io.Writer
	prev feed.Snapshot
	n    int
}

func NewWatchPrinter(w io.Writer) *WatchPrinter {
	return &WatchPrinter{w: w}
}

// Print writes the line for snap received at at.
func (p *WatchPrinter) Print(at time.Time, snap feed.Snapshot) {
	p.n++
	fmt.Fprint(p.w, timestampColor.Sprint(at.Format("15:04:05.000")))

	changed := 0
	for _, name := range snap.Names() {
		cur := snap[name]
		old, seen := p.prev[name]
		if p.prev != nil && seen && old == cur {
			continue
		}
		changed++
		fmt.Fprintf(p.w, " %s=%d", queueColor.Sprint(name), cur)
		if seen && p.prev != nil {
			fmt.Fprint(p.w, delta(cur-old))
		}
	}
	for _, name := range p.prev.Names() {
		if _, ok := snap[name]; !ok {
			changed++
			fmt.Fprintf(p.w, " %s", mutedColor.Sprintf("%s gone", name))
		}
	}
	if changed == 0 {
		fmt.Fprint(p.w, mutedColor.Sprintf(" no change (%d queues)", len(snap)))
	}
	fmt.Fprintln(p.w)
	p.prev = snap
}

// Count returns the number of snapshots printed.
func (p *WatchPrinter) Count() int {
	return p.n
}

func delta(d int64) string {
	if d > 0 {
		return upColor.Sprintf("(+%d)", d)
	}
	return downColor.Sprintf("(%d)", d)
}
