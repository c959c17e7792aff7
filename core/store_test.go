package core

import "testing"

func TestStoreTransferNative(t *testing.T) {
	s := NewStore()
	s.CreditNative(addrN(1), 1000)
	if err := s.TransferNative(addrN(1), addrN(2), 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if s.NativeBalance(addrN(1)) != 600 {
		t.Fatalf("unexpected sender balance: %d", s.NativeBalance(addrN(1)))
	}
	if s.NativeBalance(addrN(2)) != 400 {
		t.Fatalf("unexpected recipient balance: %d", s.NativeBalance(addrN(2)))
	}
}

func TestStoreTransferNativeInsufficientBalance(t *testing.T) {
	s := NewStore()
	err := s.TransferNative(addrN(1), addrN(2), 1)
	code, ok := CodeOf(err)
	if !ok || code != ErrOverflow {
		t.Fatalf("expected Overflow for insufficient balance, got %v", err)
	}
}

func TestStoreTransferNativeZeroAmountNoop(t *testing.T) {
	s := NewStore()
	if err := s.TransferNative(addrN(1), addrN(2), 0); err != nil {
		t.Fatalf("expected zero-amount transfer to be a legal no-op, got %v", err)
	}
}

func TestStoreTransferToken(t *testing.T) {
	s := NewStore()
	mint := addrN(9)
	s.CreditToken(mint, addrN(1), 100)
	if err := s.TransferToken(mint, addrN(1), addrN(2), 30); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if s.TokenBalance(mint, addrN(1)) != 70 {
		t.Fatalf("unexpected src balance: %d", s.TokenBalance(mint, addrN(1)))
	}
	if s.TokenBalance(mint, addrN(2)) != 30 {
		t.Fatalf("unexpected dst balance: %d", s.TokenBalance(mint, addrN(2)))
	}
}

func TestStoreWriteReadData(t *testing.T) {
	s := NewStore()
	if err := s.WriteData(addrN(1), 0, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteData(addrN(1), 5, []byte(" world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := string(s.ReadData(addrN(1))); got != "hello world" {
		t.Fatalf("unexpected data: %q", got)
	}
}

func TestStoreReadDataReturnsDefensiveCopy(t *testing.T) {
	s := NewStore()
	_ = s.WriteData(addrN(1), 0, []byte("hello"))
	got := s.ReadData(addrN(1))
	got[0] = 'X'
	if string(s.ReadData(addrN(1))) != "hello" {
		t.Fatalf("expected ReadData to return a copy insulated from caller mutation")
	}
}
