package context

import (
	"fmt"
	"sort"
	"strings"
)

// FormatMarkdown renders an Assembled context as a system-prompt
// injection: a "Progressive Disclosure" header, a session table, a
// per-file grouped index table, full-detail cards, and an economics
// footer reporting how many tokens were spent, saved, and left out.
func FormatMarkdown(a Assembled) string {
	var b strings.Builder

	b.WriteString("## Progressive Disclosure Context\n\n")

	writeSessionTable(&b, a)
	writeSummaryTier(&b, a)
	writeIndexTier(&b, a)
	writeFullTier(&b, a)

	if len(a.UserScopeEntries) > 0 {
		b.WriteString("### Cross-Project Notes\n\n")
		for range a.UserScopeEntries {
			b.WriteString("- (user scope observation)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("_Economics: %d tokens spent", a.TotalTokens))
	if a.UserScopeTokens > 0 {
		b.WriteString(fmt.Sprintf(" (+%d user-scope)", a.UserScopeTokens))
	}
	if saved := discoverySavings(a); saved > 0 {
		b.WriteString(fmt.Sprintf(", %d tokens saved vs. raw tool output", saved))
	}
	if a.TruncatedCount > 0 {
		b.WriteString(fmt.Sprintf(", %d entries truncated for budget", a.TruncatedCount))
	}
	b.WriteString("._\n")

	return b.String()
}

// discoverySavings sums discoveryTokens-tokenCount over every included
// observation with a known (non-zero) discoveryTokens. An observation
// whose discoveryTokens is zero has an unknown raw-output size and is
// excluded from the aggregate rather than counted as zero savings.
func discoverySavings(a Assembled) int {
	saved := 0
	for _, e := range a.Entries {
		if e.Observation == nil || e.Observation.DiscoveryTokens == 0 {
			continue
		}
		saved += e.Observation.DiscoveryTokens - e.Observation.TokenCount
	}
	return saved
}

// writeSessionTable summarizes the sessions contributing entries to this
// context: one row per distinct sessionId, with how many summary and
// observation entries each contributed.
func writeSessionTable(b *strings.Builder, a Assembled) {
	type row struct {
		sessionID    string
		summaries    int
		observations int
	}
	order := []string{}
	rows := map[string]*row{}
	touch := func(sessionID string) *row {
		r, ok := rows[sessionID]
		if !ok {
			r = &row{sessionID: sessionID}
			rows[sessionID] = r
			order = append(order, sessionID)
		}
		return r
	}
	for _, e := range a.Entries {
		switch e.Tier {
		case TierSummary:
			touch(e.Summary.SessionID).summaries++
		case TierIndex, TierFull:
			touch(e.Observation.SessionID).observations++
		}
	}
	if len(order) == 0 {
		return
	}

	b.WriteString("### Sessions\n\n")
	b.WriteString("| Session | Summaries | Observations |\n")
	b.WriteString("|---|---|---|\n")
	for _, sessionID := range order {
		r := rows[sessionID]
		b.WriteString(fmt.Sprintf("| `%s` | %d | %d |\n", r.sessionID, r.summaries, r.observations))
	}
	b.WriteString("\n")
}

func writeSummaryTier(b *strings.Builder, a Assembled) {
	var has bool
	for _, e := range a.Entries {
		if e.Tier == TierSummary {
			has = true
			break
		}
	}
	if !has {
		return
	}
	b.WriteString("### Session Summaries\n\n")
	for _, e := range a.Entries {
		if e.Tier != TierSummary {
			continue
		}
		s := e.Summary
		b.WriteString(fmt.Sprintf("- **%s**\n", s.Summary))
		if len(s.KeyDecisions) > 0 {
			b.WriteString(fmt.Sprintf("  - Decisions: %s\n", strings.Join(s.KeyDecisions, "; ")))
		}
	}
	b.WriteString("\n")
}

// indexFileGroup is the file an index entry is grouped under. Observations
// touching no file (pure discoveries, reasoning-only) fall into "(general)".
func indexFileGroup(o *Entry) string {
	if o.Observation == nil || len(o.Observation.FilesModified) == 0 {
		return "(general)"
	}
	return o.Observation.FilesModified[0]
}

// writeIndexTier renders index-tier entries as a table grouped by the
// file each observation modified, so an agent scanning the index can
// jump straight to the files it's about to touch.
func writeIndexTier(b *strings.Builder, a Assembled) {
	var entries []Entry
	for _, e := range a.Entries {
		if e.Tier == TierIndex {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}

	groups := map[string][]Entry{}
	var files []string
	for _, e := range entries {
		f := indexFileGroup(&e)
		if _, ok := groups[f]; !ok {
			files = append(files, f)
		}
		groups[f] = append(groups[f], e)
	}
	sort.Strings(files)

	b.WriteString("### Index\n\n")
	b.WriteString("| File | Observation | Type |\n")
	b.WriteString("|---|---|---|\n")
	for _, f := range files {
		for _, e := range groups[f] {
			o := e.Observation
			b.WriteString(fmt.Sprintf("| %s | `%s` %s | %s |\n", f, o.ID, o.Title, o.Type))
		}
	}
	b.WriteString("\n")
}

func writeFullTier(b *strings.Builder, a Assembled) {
	var entries []Entry
	for _, e := range a.Entries {
		if e.Tier == TierFull {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}
	b.WriteString("### Observations\n\n")
	for _, e := range entries {
		o := e.Observation
		b.WriteString(fmt.Sprintf("#### [%s] %s\n\n", o.Type, o.Title))
		if o.Subtitle != "" {
			b.WriteString(fmt.Sprintf("_%s_\n\n", o.Subtitle))
		}
		b.WriteString(o.Narrative + "\n\n")
		if len(o.Facts) > 0 {
			for _, f := range o.Facts {
				b.WriteString(fmt.Sprintf("- %s\n", f))
			}
			b.WriteString("\n")
		}
	}
}

// FormatPlainText renders a compact, non-markdown rendering of an
// Assembled context, used for compaction-time injection where the
// target surface is a plain-text tool transcript rather than a
// markdown-rendering system prompt.
func FormatPlainText(a Assembled) string {
	var b strings.Builder
	for _, e := range a.Entries {
		switch e.Tier {
		case TierSummary:
			b.WriteString("SUMMARY: " + e.Summary.Summary + "\n")
		case TierIndex:
			b.WriteString(fmt.Sprintf("- [%s] %s\n", e.Observation.Type, e.Observation.Title))
		case TierFull:
			o := e.Observation
			b.WriteString(fmt.Sprintf("[%s] %s: %s\n", o.Type, o.Title, o.Narrative))
		}
	}
	b.WriteString(fmt.Sprintf("(%d tokens", a.TotalTokens))
	if saved := discoverySavings(a); saved > 0 {
		b.WriteString(fmt.Sprintf(", %d saved", saved))
	}
	if a.TruncatedCount > 0 {
		b.WriteString(fmt.Sprintf(", %d truncated", a.TruncatedCount))
	}
	b.WriteString(")\n")
	return b.String()
}
