package value

import "fmt"

// Clone deep-copies v into the system (Go heap) allocator. spec.md §3
// requires this: a value the decoder handed out is owned by the
// per-message arena and is invalidated by the next inbound read, so an
// application that wants to keep a value across Pull calls must copy it
// out first.
//
// spec.md §9 Open Question 3 notes a latent bug in the source this
// protocol was modeled on: copying a map that fails partway through frees
// the *source* map's keys instead of the partially-built destination's.
// Clone does not reproduce that — on failure it only ever touches the
// destination it was building (here, simply returning the error; Go's GC
// reclaims the abandoned partial Map, and the source is never touched).
func Clone(v Value) (Value, error) {
	switch t := v.(type) {
	case Null:
		return Null{}, nil
	case Boolean:
		return t, nil
	case Integer:
		return t, nil
	case Float:
		return t, nil
	case String:
		return t, nil
	case Date:
		return t, nil
	case Time:
		return t, nil
	case LocalTime:
		return t, nil
	case DateTime:
		return t, nil
	case DateTimeZoneID:
		return t, nil
	case LocalDateTime:
		return t, nil
	case Duration:
		return t, nil
	case Point2D:
		return t, nil
	case Point3D:
		return t, nil
	case Unknown:
		fields, err := cloneValueSlice(t.Fields)
		if err != nil {
			return nil, err
		}
		return Unknown{Signature: t.Signature, Fields: fields}, nil
	case *List:
		return cloneList(t)
	case *Map:
		return cloneMap(t)
	case *Node:
		props, err := cloneMap(t.Properties)
		if err != nil {
			return nil, err
		}
		labels := append([]string(nil), t.Labels...)
		return &Node{ID: t.ID, Labels: labels, Properties: props}, nil
	case *Relationship:
		props, err := cloneMap(t.Properties)
		if err != nil {
			return nil, err
		}
		return &Relationship{ID: t.ID, Start: t.Start, End: t.End, Type: t.Type, Properties: props}, nil
	case *UnboundRelationship:
		props, err := cloneMap(t.Properties)
		if err != nil {
			return nil, err
		}
		return &UnboundRelationship{ID: t.ID, Type: t.Type, Properties: props}, nil
	case *Path:
		nodes := make([]*Node, len(t.Nodes))
		for i, n := range t.Nodes {
			cn, err := Clone(n)
			if err != nil {
				return nil, err
			}
			nodes[i] = cn.(*Node)
		}
		rels := make([]*UnboundRelationship, len(t.Relationships))
		for i, r := range t.Relationships {
			cr, err := Clone(r)
			if err != nil {
				return nil, err
			}
			rels[i] = cr.(*UnboundRelationship)
		}
		seq := append([]int64(nil), t.Sequence...)
		return &Path{Nodes: nodes, Relationships: rels, Sequence: seq}, nil
	default:
		return nil, fmt.Errorf("value: Clone: unhandled kind %v", v.Kind())
	}
}

func cloneValueSlice(in []Value) ([]Value, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]Value, len(in))
	for i, v := range in {
		cv, err := Clone(v)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func cloneList(l *List) (*List, error) {
	if l == nil {
		return nil, nil
	}
	out := NewList(l.Len())
	for _, v := range l.Items() {
		cv, err := Clone(v)
		if err != nil {
			return nil, err
		}
		if err := out.Append(cv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cloneMap(m *Map) (*Map, error) {
	if m == nil {
		return nil, nil
	}
	out := NewMap(m.Len())
	var insertErr error
	m.Range(func(key string, v Value) {
		if insertErr != nil {
			return
		}
		cv, err := Clone(v)
		if err != nil {
			insertErr = err
			return
		}
		insertErr = out.InsertUnsafe(key, cv)
	})
	if insertErr != nil {
		return nil, insertErr
	}
	return out, nil
}
