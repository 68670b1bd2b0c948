package gateway

const compressPromptTemplate = `You are distilling the raw output of a single tool call into a structured,
durable observation for a coding agent's long-term memory. Compress
aggressively: the narrative must be shorter than the raw output while
keeping every technical decision, file touched, and surprising discovery.

**Tool:** {{.ToolName}}

**Raw output:**
{{.RawOutput}}

Respond in exactly this format, one field per line, no extra commentary:

TYPE: <one of decision, bugfix, feature, refactor, discovery, change>
TITLE: <one line, under 80 characters>
SUBTITLE: <one line, optional, may be empty>
FACTS: <semicolon-separated short facts, may be empty>
CONCEPTS: <comma-separated topical tags, may be empty>
NARRATIVE: <2-4 sentences of prose, the durable record>`

const summarizePromptTemplate = `You are writing the closing summary for a finished coding session. Below
is the session's narrative, built from its individual observations in
order. Compress it into a concise retrospective.

**Session narrative:**
{{.SessionNarrative}}

Respond in exactly this format:

SUMMARY: <3-5 sentences: what was requested, investigated, learned, and completed, plus any next steps>`

const rerankPromptTemplate = `You are ranking candidate memory entries by relevance to a query. Return
ONLY a comma-separated list of zero-based candidate indexes, most relevant
first. Do not explain your reasoning.

**Query:** {{.Query}}

**Candidates:**
{{range $i, $c := .Candidates}}{{$i}}: {{$c}}
{{end}}`
