package codec

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

type page struct {
	Data         []row `json:"data"`
	CurrentPage  int   `json:"currentPage"`
	TotalRecords int   `json:"totalRecords"`
}

type row struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func samplePage() page {
	return page{
		Data:         []row{{ID: "7", Name: "Ana", Active: true}, {ID: "8", Name: "Bia"}},
		CurrentPage:  1,
		TotalRecords: 2,
	}
}

func TestByNameRoundTrip(t *testing.T) {
	for _, name := range []string{"", NameJSON, NameCBOR, NameMsgpack} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName[page](name)
			if err != nil {
				t.Fatalf("ByName(%q): %v", name, err)
			}
			in := samplePage()
			b, err := c.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(out.Data) != 2 || out.Data[0] != in.Data[0] || out.TotalRecords != 2 {
				t.Fatalf("round trip mismatch: %+v", out)
			}
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName[page]("gob"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, _ := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	b, _ := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	if string(a) != string(b) {
		t.Fatalf("deterministic encoding differs")
	}
}

func TestLimit(t *testing.T) {
	c := Limit[page]{Inner: JSON[page]{}, MaxEncode: 16, MaxDecode: 16}
	if _, err := c.Encode(samplePage()); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Encode err = %v, want ErrTooLarge", err)
	}
	if _, err := c.Decode(make([]byte, 17)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decode err = %v, want ErrTooLarge", err)
	}
	if _, err := c.Decode([]byte(`{}`)); err != nil {
		t.Fatalf("small payload rejected: %v", err)
	}

	off := Limit[page]{Inner: JSON[page]{}}
	if _, err := off.Encode(samplePage()); err != nil {
		t.Fatalf("disabled limit rejected payload: %v", err)
	}
}

func TestBytesCopiesOnDecode(t *testing.T) {
	in := []byte("raw")
	out, _ := Bytes{}.Decode(in)
	in[0] = 'X'
	if string(out) != "raw" {
		t.Fatalf("Decode aliases input")
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	in, err := structpb.NewStruct(map[string]any{"id": "7", "active": true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Fields["id"].GetStringValue() != "7" || !out.Fields["active"].GetBoolValue() {
		t.Fatalf("decoded = %v", out)
	}
}
