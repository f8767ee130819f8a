package call

// ARI application names, one per call flow.
const (
	AppIncoming        = "telewall-incoming"
	AppBlock           = "telewall-block"
	AppManageRecording = "telewall-managerecording"
)

// originatedMarker is the appArgs value on the outgoing handset leg. A
// StasisStart carrying it belongs to an already-handled call and must not
// spawn a new session.
const originatedMarker = "dialed"

// CustomAnnouncementRecording is the stored-recording name of the
// user-recorded announcement, kept by the control server.
const CustomAnnouncementRecording = "telewall-custom-message"

// DefaultAnnouncement is played to refused callers when no custom
// announcement is recorded. Stored recordings use the recording: prefix,
// bundled assets the sound: prefix.
const DefaultAnnouncement = "sound:/telewall/sounds/de/announcement"

// Bundled menu and confirmation sounds.
const (
	soundMainMenu           = "sound:/telewall/sounds/de/mainmenu"
	soundRecordInstruction  = "sound:/telewall/sounds/de/record-announcement-instruction"
	soundResetConfirm       = "sound:/telewall/sounds/de/reset-announcement-confirm"
	soundResetDone          = "sound:/telewall/sounds/de/reset-announcement-done"
	soundBlockDone          = "sound:/telewall/sounds/de/block-done"
	soundUnblockDone        = "sound:/telewall/sounds/de/unblock-done"
	soundPhoneNumberInvalid = "sound:/telewall/sounds/de/phonenumber-invalid"
)

// Values of the CDR(telewall_state) audit variable.
const (
	auditRefused  = "refused"
	auditAllowed  = "allowed"
	auditNoAnswer = "no_answer"
	auditAnswered = "answered"
	auditBusy     = "busy"
)
