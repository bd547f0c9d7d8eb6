package amount

import (
	"errors"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	sum, err := Add(40, 2)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum != 42 {
		t.Fatalf("Add: got %d, want 42", sum)
	}

	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Add overflow: got %v, want ErrOverflow", err)
	}
	if sum, err := Add(math.MaxUint64-1, 1); err != nil || sum != math.MaxUint64 {
		t.Fatalf("Add boundary: got %d, %v", sum, err)
	}
}

func TestSub(t *testing.T) {
	diff, err := Sub(42, 2)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff != 40 {
		t.Fatalf("Sub: got %d, want 40", diff)
	}

	if _, err := Sub(1, 2); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("Sub underflow: got %v, want ErrUnderflow", err)
	}
	if diff, err := Sub(7, 7); err != nil || diff != 0 {
		t.Fatalf("Sub boundary: got %d, %v", diff, err)
	}
}
