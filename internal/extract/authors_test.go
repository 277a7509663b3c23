package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"searchlib/internal/marc/marctest"
)

func TestRusmarcAuthorPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		fields []marctest.Field
		want   []string
	}{
		{
			name:   "primary full name",
			fields: []marctest.Field{marctest.Data("700", "aПушкин", "bА.С.", "gАлександр Сергеевич")},
			want:   []string{"Пушкин А.С."},
		},
		{
			name:   "primary initials",
			fields: []marctest.Field{marctest.Data("700", "aПушкин", "gАлександр Сергеевич")},
			want:   []string{"Пушкин А. С."},
		},
		{
			name: "primary wins over alternatives",
			fields: []marctest.Field{
				marctest.Data("700", "aПушкин", "bА.С."),
				marctest.Data("701", "aЖуковский", "bВ.А."),
			},
			want: []string{"Пушкин А.С."},
		},
		{
			name: "every alternative with full name",
			fields: []marctest.Field{
				marctest.Data("701", "aИльф", "bИ."),
				marctest.Data("701", "aПетров", "bЕ."),
				marctest.Data("701", "aБезымянный"),
			},
			want: []string{"Ильф И.", "Петров Е."},
		},
		{
			name: "alternative initials when first lacks b",
			fields: []marctest.Field{
				marctest.Data("701", "aСтругацкий", "gАркадий Натанович"),
				marctest.Data("701", "aСтругацкий", "gБорис Натанович"),
			},
			want: []string{"Стругацкий А. Н.", "Стругацкий Б. Н."},
		},
		{
			name:   "secondary only",
			fields: []marctest.Field{marctest.Data("702", "aИванов", "bИ.И.")},
			want:   []string{"Иванов И.И."},
		},
		{
			name:   "secondary initials",
			fields: []marctest.Field{marctest.Data("702", "aИванов", "gИван")},
			want:   []string{"Иванов И."},
		},
		{
			name:   "primary without name parts falls through",
			fields: []marctest.Field{marctest.Data("700", "aАноним"), marctest.Data("702", "aИванов", "bИ.И.")},
			want:   []string{"Иванов И.И."},
		},
		{
			name:   "no author fields",
			fields: []marctest.Field{marctest.Data("200", "aБез автора")},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parse(t, 'm', tt.fields...)
			assert.Equal(t, tt.want, FirstMatch(rusmarcAuthors, rec))
		})
	}
}

func TestDuplicateAuthorsCollapse(t *testing.T) {
	rec := parse(t, 'm',
		marctest.Data("701", "aИльф", "bИ."),
		marctest.Data("701", "aИльф", "bИ."),
	)
	x := Rusmarc{}.Extract(rec, "RUCONT")
	assert.Equal(t, []string{"Ильф И."}, x.Authors)
}
