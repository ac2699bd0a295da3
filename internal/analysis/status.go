package analysis

import "strings"

// Status bucketing is case-insensitive everywhere. "blocked" is its own bucket
// on top of the done/active split; anything else counts as todo.
var doneStatuses = map[string]struct{}{
    "done": {}, "closed": {}, "resolved": {},
}

var activeStatuses = map[string]struct{}{
    "in progress": {}, "in review": {}, "in development": {},
}

func isDone(status string) bool {
    _, ok := doneStatuses[strings.ToLower(strings.TrimSpace(status))]
    return ok
}

func isActive(status string) bool {
    _, ok := activeStatuses[strings.ToLower(strings.TrimSpace(status))]
    return ok
}

func isBlocked(status string) bool {
    return strings.EqualFold(strings.TrimSpace(status), "blocked")
}
