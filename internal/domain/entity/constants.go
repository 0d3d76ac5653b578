package entity

// Upload kind constants for UploadRecord
const (
	UploadKindImage = "IMAGE" // public image hosting upload
	UploadKindFile  = "FILE"  // admin file upload
)

// Image hosting modes
const (
	ImageHostingPublic   = "public"
	ImageHostingAdmin    = "admin"
	ImageHostingDisabled = "disabled"
)

// DefaultLockPassword is written to .password when the operator leaves the
// password field blank.
const DefaultLockPassword = "12345678"

// MaxUploadSize is the largest single upload accepted (4 MiB).
const MaxUploadSize int64 = 4 << 20
