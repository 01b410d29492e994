package native

import "fmt"

// Status is the result code returned by every native entry point.
// The set of values is closed: codes the runtime reports that are not
// listed here map to StatusUnknown.
type Status int32

const (
	StatusNoError                       Status = 0
	StatusUnspecified                   Status = 1
	StatusNullArgument                  Status = 2
	StatusUnattachedThread              Status = 4
	StatusUninitializedIsolate          Status = 5
	StatusLocateImageFailed             Status = 6
	StatusOpenImageFailed               Status = 7
	StatusMapHeapFailed                 Status = 8
	StatusReserveAddressSpaceFailed     Status = 801
	StatusInsufficientAddressSpace      Status = 802
	StatusProtectHeapFailed             Status = 9
	StatusUnsupportedIsolates           Status = 10
	StatusThreadingInitializationFailed Status = 11
	StatusUncaughtException             Status = 12
	StatusIsolateInitializationFailed   Status = 13
	StatusOpenAuxImageFailed            Status = 14
	StatusReadAuxImageMetaFailed        Status = 15
	StatusMapAuxImageFailed             Status = 16
	StatusInsufficientAuxImageMemory    Status = 17
	StatusAuxImageUnsupported           Status = 18
	StatusFreeAddressSpaceFailed        Status = 19
	StatusFreeImageHeapFailed           Status = 20
	StatusAuxImagePrimaryImageMismatch  Status = 21
	StatusArgumentParsingFailed         Status = 22
	StatusCurrentThreadUnattached       Status = 23
	StatusUnknown                       Status = -1
)

type statusInfo struct {
	name        string
	description string
}

var statuses = map[Status]statusInfo{
	StatusNoError:                       {"NO_ERROR", "No error occurred."},
	StatusUnspecified:                   {"UNSPECIFIED", "An unspecified error occurred."},
	StatusNullArgument:                  {"NULL_ARGUMENT", "An argument was NULL."},
	StatusUnattachedThread:              {"UNATTACHED_THREAD", "The specified thread is not attached to the isolate."},
	StatusUninitializedIsolate:          {"UNINITIALIZED_ISOLATE", "The specified isolate is unknown."},
	StatusLocateImageFailed:             {"LOCATE_IMAGE_FAILED", "Locating the image file failed."},
	StatusOpenImageFailed:               {"OPEN_IMAGE_FAILED", "Opening the located image file failed."},
	StatusMapHeapFailed:                 {"MAP_HEAP_FAILED", "Mapping the heap from the image file into memory failed."},
	StatusReserveAddressSpaceFailed:     {"RESERVE_ADDRESS_SPACE_FAILED", "Reserving address space for the new isolate failed."},
	StatusInsufficientAddressSpace:      {"INSUFFICIENT_ADDRESS_SPACE", "The image heap does not fit in the available address space."},
	StatusProtectHeapFailed:             {"PROTECT_HEAP_FAILED", "Setting the protection of the heap memory failed."},
	StatusUnsupportedIsolates:           {"UNSUPPORTED_ISOLATES", "The version of the specified isolate parameters is unsupported."},
	StatusThreadingInitializationFailed: {"THREADING_INITIALIZATION_FAILED", "Initialization of threading in the isolate failed."},
	StatusUncaughtException:             {"UNCAUGHT_EXCEPTION", "Some exception is not caught."},
	StatusIsolateInitializationFailed:   {"ISOLATE_INITIALIZATION_FAILED", "Initialization the isolate failed."},
	StatusOpenAuxImageFailed:            {"OPEN_AUX_IMAGE_FAILED", "Opening the located auxiliary image file failed."},
	StatusReadAuxImageMetaFailed:        {"READ_AUX_IMAGE_META_FAILED", "Reading the opened auxiliary image file failed."},
	StatusMapAuxImageFailed:             {"MAP_AUX_IMAGE_FAILED", "Mapping the auxiliary image file into memory failed."},
	StatusInsufficientAuxImageMemory:    {"INSUFFICIENT_AUX_IMAGE_MEMORY", "Insufficient memory for the auxiliary image."},
	StatusAuxImageUnsupported:           {"AUX_IMAGE_UNSUPPORTED", "Auxiliary images are not supported on this platform or edition."},
	StatusFreeAddressSpaceFailed:        {"FREE_ADDRESS_SPACE_FAILED", "Releasing the isolate's address space failed."},
	StatusFreeImageHeapFailed:           {"FREE_IMAGE_HEAP_FAILED", "Releasing the isolate's image heap memory failed."},
	StatusAuxImagePrimaryImageMismatch:  {"AUX_IMAGE_PRIMARY_IMAGE_MISMATCH", "The auxiliary image was built from a different primary image."},
	StatusArgumentParsingFailed:         {"ARGUMENT_PARSING_FAILED", "The isolate arguments could not be parsed."},
	StatusCurrentThreadUnattached:       {"CURRENT_THREAD_UNATTACHED", "The current thread is not attached to an isolate."},
	StatusUnknown:                       {"UNKNOWN", "Unknown error."},
}

// StatusOf converts a raw code returned by the native layer.
func StatusOf(code int) Status {
	s := Status(code)
	if _, ok := statuses[s]; !ok {
		return StatusUnknown
	}
	return s
}

// Name returns the symbolic name, e.g. "UNATTACHED_THREAD".
func (s Status) Name() string {
	if info, ok := statuses[s]; ok {
		return info.name
	}
	return statuses[StatusUnknown].name
}

// Description returns the human-readable description of the status.
func (s Status) Description() string {
	if info, ok := statuses[s]; ok {
		return info.description
	}
	return statuses[StatusUnknown].description
}

// OK reports whether s is StatusNoError.
func (s Status) OK() bool {
	return s == StatusNoError
}

// Err returns nil for StatusNoError and s otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return s
}

func (s Status) Error() string {
	return fmt.Sprintf("native: %s (%d): %s", s.Name(), int32(s), s.Description())
}

func (s Status) String() string {
	return s.Name()
}
