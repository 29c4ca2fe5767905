package model

import (
	"database/sql/driver"
	"fmt"
)

type TaskStatus int

const (
	StatusWaiting TaskStatus = iota + 1
	StatusFetched
	StatusStarted
	StatusCompleted
	StatusFailed
)

// statusNames is the storage form of each status. statusByName is derived
// from it so the two directions cannot drift.
var statusNames = map[TaskStatus]string{
	StatusWaiting:   "waiting",
	StatusFetched:   "fetched",
	StatusStarted:   "started",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
}

var statusByName = invert(statusNames)

// predecessors lists, for each status, the statuses a task may move from.
var predecessors = map[TaskStatus][]TaskStatus{
	StatusFetched:   {StatusWaiting},
	StatusStarted:   {StatusFetched},
	StatusCompleted: {StatusStarted},
	StatusFailed:    {StatusWaiting, StatusFetched, StatusStarted},
}

func (s TaskStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Predecessors returns the statuses from which a task may enter to.
func Predecessors(to TaskStatus) []TaskStatus {
	return predecessors[to]
}

func CanTransition(from, to TaskStatus) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

func NonTerminalStatuses() []TaskStatus {
	return []TaskStatus{StatusWaiting, StatusFetched, StatusStarted}
}

func ParseTaskStatus(name string) (TaskStatus, error) {
	if s, ok := statusByName[name]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("task status value should be one of waiting, fetched, started, completed and failed: %q", name)
}

func (s TaskStatus) Value() (driver.Value, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown task status %d", int(s))
	}
	return name, nil
}

func (s *TaskStatus) Scan(src any) error {
	name, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseTaskStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TaskStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type CmdType int

const (
	CmdFile CmdType = iota + 1
	CmdLink
	CmdURL
)

var cmdTypeNames = map[CmdType]string{
	CmdFile: "file",
	CmdLink: "link",
	CmdURL:  "url",
}

var cmdTypeByName = invert(cmdTypeNames)

func (c CmdType) String() string {
	if name, ok := cmdTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd(%d)", int(c))
}

func ParseCmdType(name string) (CmdType, error) {
	if c, ok := cmdTypeByName[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("cmd type value should be one of file, link and url: %q", name)
}

func (c CmdType) Value() (driver.Value, error) {
	name, ok := cmdTypeNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown cmd type %d", int(c))
	}
	return name, nil
}

func (c *CmdType) Scan(src any) error {
	name, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseCmdType(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c CmdType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported column type %T", src)
	}
}

func invert[K, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
