package predicate

import (
	"strconv"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newIntRegistry() *Registry[int] {
	r := NewRegistry[int]()
	r.Register("even", func(v int) bool { return v%2 == 0 })
	r.Register("positive", func(v int) bool { return v > 0 })
	r.RegisterFactory("value", func(op, value string) (Func[int], error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if _, err := CompareInt(0, op, n); err != nil {
			return nil, err
		}
		return func(v int) bool {
			ok, _ := CompareInt(v, op, n)
			return ok
		}, nil
	})
	return r
}

func TestParse(t *testing.T) {
	r := newIntRegistry()
	tests := []struct {
		expr  string
		value int
		want  bool
	}{
		{"", -3, true},
		{"even", 4, true},
		{"even", 3, false},
		{"!even", 3, true},
		{"!!even", 3, false},
		{"even && positive", -2, false},
		{"even&&positive", 2, true},
		{"value>=10", 10, true},
		{"value>=10", 9, false},
		{"value < 10 && !even", 7, true},
		{"value!=3", 3, false},
		{"value=3", 3, true},
		{"!value>=10", 9, true},
		{"!value>=10", 10, false},
		{"! value=3 && even", 4, true},
		{"!!value=3", 3, true},
	}
	for _, tt := range tests {
		fn, err := r.Parse(tt.expr)
		assert.NoError(t, err, tt.expr)
		expect.EQ(t, fn(tt.value), tt.want, "%q(%d)", tt.expr, tt.value)
	}
}

func TestParseErrors(t *testing.T) {
	r := newIntRegistry()
	for _, expr := range []string{"odd", "even &&", "even>=3", "value>=x", "!", "!value>=x"} {
		_, err := r.Parse(expr)
		expect.NotNil(t, err, expr)
	}
	_, err := r.Parse("odd")
	expect.HasSubstr(t, err.Error(), "known: even, positive, value<op>VALUE")
}

func TestParseLabeled(t *testing.T) {
	r := newIntRegistry()
	l, err := r.ParseLabeled("big evens:even && value>100")
	assert.NoError(t, err)
	expect.EQ(t, l.Label, "big evens")
	expect.EQ(t, l.Expr, "even && value>100")
	expect.True(t, l.Func(102))
	expect.False(t, l.Func(100))

	l, err = r.ParseLabeled("!even")
	assert.NoError(t, err)
	expect.EQ(t, l.Label, "!even")
	expect.True(t, l.Func(1))
}

func TestRegisterDuplicate(t *testing.T) {
	r := newIntRegistry()
	defer func() {
		expect.NotNil(t, recover())
	}()
	r.Register("even", func(int) bool { return true })
}
