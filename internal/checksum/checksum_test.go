package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("# node\n"))
	if len(got) != 64 {
		t.Errorf("len = %d", len(got))
	}
	if got != Sum([]byte("# node\n")) {
		t.Error("Sum is not deterministic")
	}
	if got == Sum([]byte("# other\n")) {
		t.Error("different content, same digest")
	}
	// sha256 of the empty input
	if Sum(nil) != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", Sum(nil))
	}
}
