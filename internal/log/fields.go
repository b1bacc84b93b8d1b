package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldDonationID = "donation_id"
	FieldReference  = "reference"
	FieldTotalCents = "total_cents"
	FieldBasketSize = "basket_size"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCheckout = "checkout"
)
