package dmf

// Channel identifies one analog input line on the control board.
type Channel uint8

// Reference selects the voltage reference applied to subsequent conversions.
type Reference uint8

const (
	// ReferenceDefault is the board analog reference (AREF).
	ReferenceDefault Reference = iota
	// ReferenceInternal is the fixed chip-level reference, used for the
	// internal temperature sensor.
	ReferenceInternal
)

// Device defines the acquisition interface for DMF control boards (real or
// mocked). ReadRaw performs one fresh analog-to-digital conversion; the
// reference set with SetReference stays in effect until changed again.
type Device interface {
	Connect() error
	Close() error
	ReadRaw(ch Channel) (uint16, error)
	SetReference(ref Reference) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
