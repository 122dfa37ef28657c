package domain

import "errors"

// Factory errors.
var (
	// ErrIncorrectCreationFee is returned when the creation payment differs from the fixed fee.
	ErrIncorrectCreationFee = errors.New("incorrect rep creation fee")

	// ErrInvalidRoyalty is returned when the royalty is 10000 bps or more.
	ErrInvalidRoyalty = errors.New("incorrect royalty set")

	// ErrDuplicateTicker is returned when (ticker, creator) is already registered.
	ErrDuplicateTicker = errors.New("rep with this ticker already created by creator")

	// ErrInvalidTicker is returned for empty or over-long tickers.
	ErrInvalidTicker = errors.New("invalid ticker")
)

// Reserve token errors.
var (
	ErrDeadlineExpired     = errors.New("deadline expired")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOutputMismatch is returned when a mint's output differs from the declared minimum.
	// Mint requires exact equality.
	ErrOutputMismatch = errors.New("mint output does not match declared amount")

	// ErrSlippageExceeded is returned when a burn pays less than the declared minimum.
	ErrSlippageExceeded = errors.New("burn output below minimum")

	ErrIncorrectPrivilege = errors.New("caller is not the project address")
)

// General errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrZeroAmount     = errors.New("amount must be greater than zero")
	ErrOverflow       = errors.New("arithmetic overflow")

	// ErrInsufficientSupply is returned when a sale exceeds the outstanding supply.
	ErrInsufficientSupply = errors.New("sale amount exceeds supply")
	ErrUnknownToken       = errors.New("unknown rep token")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrIncorrectCreationFee, "IncorrectCreationFee"},
	{ErrInvalidRoyalty, "InvalidRoyalty"},
	{ErrDuplicateTicker, "DuplicateTicker"},
	{ErrInvalidTicker, "InvalidTicker"},
	{ErrDeadlineExpired, "DeadlineExpired"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrOutputMismatch, "OutputMismatch"},
	{ErrSlippageExceeded, "SlippageExceeded"},
	{ErrIncorrectPrivilege, "IncorrectPrivilege"},
	{ErrInvalidAddress, "InvalidAddress"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrZeroAmount, "ZeroAmount"},
	{ErrOverflow, "Overflow"},
	{ErrInsufficientSupply, "InsufficientSupply"},
	{ErrUnknownToken, "UnknownToken"},
}

// ErrorKind returns a stable name for a domain error, "Internal" for anything else.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
