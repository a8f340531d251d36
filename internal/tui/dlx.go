package tui

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/epalmerini/rmqtools/internal/index"
)

// dlxHeaders are the AMQP headers that indicate a dead-lettered message.
var dlxHeaders = []string{"x-death", "x-first-death-reason", "x-first-death-queue"}

// isDLXMessage returns true if the message has any dead-letter headers.
func isDLXMessage(msg index.Message) bool {
	for _, key := range dlxHeaders {
		if _, ok := msg.Lookup(key); ok {
			return true
		}
	}
	return false
}

type deathRecord struct {
	Count       int64
	Reason      string
	Queue       string
	Exchange    string
	RoutingKeys []string
	Time        string
}

type dlxInfo struct {
	FirstDeathReason string
	FirstDeathQueue  string
	Deaths           []deathRecord
}

// parseDLXInfo extracts dead-letter metadata from message headers. The
// x-death header arrives as a JSON array of tables.
func parseDLXInfo(msg index.Message) dlxInfo {
	var info dlxInfo

	if v, ok := msg.Lookup("x-first-death-reason"); ok && !v.IsNested() {
		info.FirstDeathReason = v.Scalar
	}
	if v, ok := msg.Lookup("x-first-death-queue"); ok && !v.IsNested() {
		info.FirstDeathQueue = v.Scalar
	}

	v, ok := msg.Lookup("x-death")
	if !ok || v.IsNested() || !v.Raw {
		return info
	}
	deaths := gjson.Parse(v.Scalar)
	if !deaths.IsArray() {
		return info
	}
	deaths.ForEach(func(_, d gjson.Result) bool {
		if d.IsObject() {
			info.Deaths = append(info.Deaths, parseDeathRecord(d))
		}
		return true
	})
	return info
}

func parseDeathRecord(d gjson.Result) deathRecord {
	rec := deathRecord{
		Count:    d.Get("count").Int(),
		Reason:   d.Get("reason").String(),
		Queue:    d.Get("queue").String(),
		Exchange: d.Get("exchange").String(),
		Time:     d.Get("time").String(),
	}
	for _, rk := range d.Get("routing-keys").Array() {
		rec.RoutingKeys = append(rec.RoutingKeys, rk.String())
	}
	return rec
}

// deadLetterReason is the short reason shown in the message list.
func deadLetterReason(msg index.Message) string {
	info := parseDLXInfo(msg)
	if info.FirstDeathReason != "" {
		return info.FirstDeathReason
	}
	if len(info.Deaths) > 0 {
		return info.Deaths[0].Reason
	}
	if isDLXMessage(msg) {
		return "dead-lettered"
	}
	return ""
}

// renderDLXSection renders dead-letter details for the detail pane.
func renderDLXSection(msg index.Message) []string {
	info := parseDLXInfo(msg)
	var lines []string

	if info.FirstDeathReason != "" {
		lines = append(lines, fieldNameStyle.Render("First Death Reason: ")+info.FirstDeathReason)
	}
	if info.FirstDeathQueue != "" {
		lines = append(lines, fieldNameStyle.Render("First Death Queue: ")+info.FirstDeathQueue)
	}

	for i, d := range info.Deaths {
		lines = append(lines, fieldNameStyle.Render(fmt.Sprintf("Death #%d", i+1))+
			fmt.Sprintf(" %s from %s (x%d)", d.Reason, d.Queue, d.Count))
		if d.Exchange != "" {
			lines = append(lines, fieldNameStyle.Render("  Exchange: ")+d.Exchange)
		}
		if len(d.RoutingKeys) > 0 {
			lines = append(lines, fieldNameStyle.Render("  Routing Keys: ")+strings.Join(d.RoutingKeys, ", "))
		}
		if d.Time != "" {
			lines = append(lines, fieldNameStyle.Render("  Time: ")+d.Time)
		}
	}
	return lines
}
