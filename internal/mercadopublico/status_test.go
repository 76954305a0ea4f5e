package mercadopublico

import "testing"

func TestStatusLabelKnownCodes(t *testing.T) {
	cases := map[int]string{
		5:  "Publicada",
		6:  "Cerrada",
		7:  "Desierta",
		8:  "Adjudicada",
		18: "Revocada",
		19: "Suspendida",
	}

	for code, want := range cases {
		if got := StatusLabel(code); got != want {
			t.Errorf("StatusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestStatusLabelIsTotal(t *testing.T) {
	for _, code := range []int{0, -1, 3, 42, 1000} {
		if got := StatusLabel(code); got != StatusUnknownLabel {
			t.Errorf("StatusLabel(%d) = %q, want %q", code, got, StatusUnknownLabel)
		}
	}
}
