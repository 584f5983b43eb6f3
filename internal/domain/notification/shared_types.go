// internal/domain/notification/shared_types.go
package notification

// Type classifies why a notification was sent.
type Type string

const (
	TypeWarn7Day Type = "warn_7d"
	TypeWarn1Day Type = "warn_1d"
	TypeAlert    Type = "alert"
	TypeTest     Type = "test"
	TypeGeneral  Type = "general"
)

// AllTypes lists every known notification type in display order.
var AllTypes = []Type{TypeWarn7Day, TypeWarn1Day, TypeAlert, TypeTest, TypeGeneral}

func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the delivery state of a single notification attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSent || s == StatusFailed
}

// Terminal reports whether no further transition can happen from s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// OriginKind is the discriminant of Origin.
type OriginKind string

const (
	OriginCourse OriginKind = "course"
	OriginManual OriginKind = "manual"
)

// Origin says what a record was sent about. Exactly one reference is active,
// selected by Kind; build it with CourseOrigin or ManualOrigin.
type Origin struct {
	kind       OriginKind
	courseID   string
	courseName string
}

func CourseOrigin(courseID, courseName string) Origin {
	return Origin{kind: OriginCourse, courseID: courseID, courseName: courseName}
}

func ManualOrigin() Origin {
	return Origin{kind: OriginManual}
}

func (o Origin) Kind() OriginKind {
	if o.kind == "" {
		return OriginManual
	}
	return o.kind
}

// Course returns the referenced course, ok is false for non-course origins.
func (o Origin) Course() (id, name string, ok bool) {
	if o.kind != OriginCourse {
		return "", "", false
	}
	return o.courseID, o.courseName, true
}
