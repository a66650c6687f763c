package classmodel

import (
	"reflect"
	"time"
)

// shared test model

type Point struct {
	X any
	Y any
}

type Player struct {
	ID   int64
	Name string
	Tags any
}

type Medal struct {
	Title string
}

type Stat struct {
	Value int64
}

type Team struct {
	Name    string
	Players []*Player
	Medals  []*Medal
	Stats   map[string]*Stat
	Meta    any
	Secret  any
	Created time.Time
}

var playerType = reflect.TypeOf((*Player)(nil))
var medalType = reflect.TypeOf((*Medal)(nil))
var statType = reflect.TypeOf((*Stat)(nil))
var timeType = reflect.TypeOf((*time.Time)(nil))

func init() {
	Describe[Point]().
		With(Field{Name: "x",
			Get: func(o any) any { return o.(*Point).X },
			Set: func(o, v any) { o.(*Point).X = v }}).
		With(Field{Name: "y",
			Get: func(o any) any { return o.(*Point).Y },
			Set: func(o, v any) { o.(*Point).Y = v }})

	Describe[Player]().
		With(Field{Name: "id",
			Get: func(o any) any { return o.(*Player).ID },
			Set: func(o, v any) { o.(*Player).ID = AsInt64(v) }}).
		With(Field{Name: "name",
			Get: func(o any) any { return o.(*Player).Name },
			Set: func(o, v any) { o.(*Player).Name = AsString(v) }}).
		With(Field{Name: "tags", CopyOnly: true,
			Get: func(o any) any { return o.(*Player).Tags },
			Set: func(o, v any) { o.(*Player).Tags = v }}).
		IdentityKey("id")

	Describe[Medal]().
		With(Field{Name: "title",
			Get: func(o any) any { return o.(*Medal).Title },
			Set: func(o, v any) { o.(*Medal).Title = AsString(v) }})

	Describe[Stat]().
		With(Field{Name: "value",
			Get: func(o any) any { return o.(*Stat).Value },
			Set: func(o, v any) { o.(*Stat).Value = AsInt64(v) }})

	Describe[time.Time]().WithScalar(ScalarConverter{
		ToPlain: func(v any) (any, error) {
			t, _ := timeValue(v)
			return t.Unix(), nil
		},
		FromPlain: func(p any) (any, error) {
			return time.Unix(AsInt64(p), 0).UTC(), nil
		},
	})

	Describe[Team]().
		With(Field{Name: "name",
			Get: func(o any) any { return o.(*Team).Name },
			Set: func(o, v any) { o.(*Team).Name = AsString(v) }}).
		With(Field{Name: "players", Nested: playerType,
			Get: func(o any) any { return o.(*Team).Players },
			Set: func(o, v any) {
				if v == nil {
					o.(*Team).Players = nil
					return
				}
				o.(*Team).Players = v.([]*Player)
			}}).
		With(Field{Name: "medals", Nested: medalType,
			Get: func(o any) any { return o.(*Team).Medals },
			Set: func(o, v any) {
				if v == nil {
					o.(*Team).Medals = nil
					return
				}
				o.(*Team).Medals = v.([]*Medal)
			}}).
		With(Field{Name: "stats", Nested: statType, StringMap: true,
			Get: func(o any) any { return o.(*Team).Stats },
			Set: func(o, v any) {
				if v == nil {
					o.(*Team).Stats = nil
					return
				}
				o.(*Team).Stats = v.(map[string]*Stat)
			}}).
		With(Field{Name: "meta", CopyOnly: true,
			Get: func(o any) any { return o.(*Team).Meta },
			Set: func(o, v any) { o.(*Team).Meta = v }}).
		With(Field{Name: "secret", Transient: true,
			Get: func(o any) any { return o.(*Team).Secret },
			Set: func(o, v any) { o.(*Team).Secret = v }}).
		With(Field{Name: "created", Nested: timeType,
			Get: func(o any) any { return o.(*Team).Created },
			Set: func(o, v any) {
				if v == nil {
					o.(*Team).Created = time.Time{}
					return
				}
				o.(*Team).Created = v.(time.Time)
			}})
}
