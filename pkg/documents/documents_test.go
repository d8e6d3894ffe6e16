package documents

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestIsValidID(t *testing.T) {
	is := is.New(t)

	is.True(IsValidID("65f1c0ffee0123456789abcd"))
	is.True(IsValidID(NewID().Hex()))

	is.True(!IsValidID("not-an-id"))                  // not hex
	is.True(!IsValidID(""))                           // empty
	is.True(!IsValidID("65f1c0ffee0123456789abc"))    // too short
	is.True(!IsValidID("65f1c0ffee0123456789abcde1")) // too long
	is.True(!IsValidID("zzzzzzzzzzzzzzzzzzzzzzzz"))   // right length, not hex
}

func TestMissingTreatsZeroAndFalseAsPresent(t *testing.T) {
	is := is.New(t)

	doc := Document{"name": "Guitar", "price": float64(0), "category": "Instruments", "inStock": false}
	is.Equal(len(doc.Missing([]string{"name", "price", "category", "inStock"})), 0)
}

func TestMissingReportsAbsentNullAndEmptyFields(t *testing.T) {
	is := is.New(t)

	doc := Document{"name": "", "price": nil}
	missing := doc.Missing([]string{"name", "price", "category"})

	is.Equal(strings.Join(missing, ","), "name,price,category")
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	is := is.New(t)

	_, err := Decode(strings.NewReader(`[1,2,3]`))
	is.True(err != nil) // arrays are not documents

	_, err = Decode(strings.NewReader(`null`))
	is.True(err != nil) // null is not a document

	_, err = Decode(strings.NewReader(`{"name":"Al"} garbage`))
	is.True(err != nil) // trailing data is not allowed

	_, err = Decode(strings.NewReader(`{"name":"Al"}{"name":"Bo"}`))
	is.True(err != nil) // only a single object is allowed

	doc, err := Decode(strings.NewReader(`{"name":"Al"}` + "\n"))
	is.NoErr(err)
	is.Equal(doc["name"], "Al")
}

func TestWithoutLeavesOriginalUntouched(t *testing.T) {
	is := is.New(t)

	doc := Document{IDField: "65f1c0ffee0123456789abcd", "name": "Al"}
	stripped := doc.Without(IDField)

	is.Equal(stripped.ID(), "")
	is.Equal(doc.ID(), "65f1c0ffee0123456789abcd")
}
