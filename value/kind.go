// Package value implements the in-memory representation of every value
// kind the protocol carries (spec.md §3). It follows a one-small-type-
// per-wire-concept shape (comparable to StepPosition, QualifierOfParameterMV,
// and similar scalar wrapper types), generalized from scalar bitfields
// to a tagged union over a much richer value algebra.
package value

// Kind identifies which variant a Value holds, one line of doc per entry,
// in the same enum-with-doc-comment style as a TypeID constant block.
type Kind uint8

const (
	_ Kind = iota // 0: not defined

	KindNull                 // 1: absence of a value
	KindBoolean               // 2: true/false
	KindInteger               // 3: 64-bit signed integer
	KindFloat                 // 4: IEEE-754 double
	KindString                // 5: UTF-8 bytes, explicit length
	KindList                  // 6: ordered sequence of Values
	KindMap                   // 7: ordered String->Value entries, unique keys
	KindNode                  // 8: graph node (id, labels, properties)
	KindRelationship          // 9: graph relationship (id, start, end, type, properties)
	KindUnboundRelationship   // 10: relationship without endpoint ids
	KindPath                  // 11: alternating node/relationship walk
	KindDate                  // 12: days since epoch
	KindTime                  // 13: nanoseconds since midnight + tz offset seconds
	KindLocalTime             // 14: nanoseconds since midnight
	KindDateTime              // 15: seconds + nanoseconds since epoch + tz offset minutes
	KindDateTimeZoneID        // 16: seconds + nanoseconds since epoch + tz id
	KindLocalDateTime         // 17: seconds + nanoseconds since epoch, no tz
	KindDuration              // 18: months, days, seconds, nanoseconds
	KindPoint2D               // 19: srid, x, y
	KindPoint3D               // 20: srid, x, y, z
	KindUnknown               // 21: forward-compatibility sentinel
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindNode:
		return "Node"
	case KindRelationship:
		return "Relationship"
	case KindUnboundRelationship:
		return "UnboundRelationship"
	case KindPath:
		return "Path"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindLocalTime:
		return "LocalTime"
	case KindDateTime:
		return "DateTime"
	case KindDateTimeZoneID:
		return "DateTimeZoneId"
	case KindLocalDateTime:
		return "LocalDateTime"
	case KindDuration:
		return "Duration"
	case KindPoint2D:
		return "Point2D"
	case KindPoint3D:
		return "Point3D"
	case KindUnknown:
		return "Unknown"
	default:
		return "Invalid"
	}
}
