package domain

// NoticeLevel classifies the single user-visible notification slot.
type NoticeLevel int

const (
	NoticeSuccess NoticeLevel = iota
	NoticeError
)

// HistorySnapshot is a fresh normalized view of the job history, split into
// in-flight and settled records. Ownership transfers to the consumer; a new
// snapshot is built on every refresh, never a shared mutable reference.
type HistorySnapshot struct {
	Processing []JobRecord
	Settled    []JobRecord
}

// Presenter is the outward-facing rendering surface. The engine never touches
// presentation mechanics; it hands over values and moves on. A new notice
// replaces the previous one, it never stacks.
type Presenter interface {
	ShowHistory(snapshot HistorySnapshot)
	ShowResult(result any)
	ShowSession(state SessionState)
	Notify(level NoticeLevel, message string)
	ClearNotice()
}
