package verification

import (
	"fmt"
	"strings"
	"time"

	userdomain "soori/internal/user/domain"
)

const (
	// ExpirationTime is how many seconds a requested code stays usable.
	ExpirationTime = 300
	// VerificationCodeLength is the number of digits in a code.
	VerificationCodeLength = 6
)

// User-facing messages.
const (
	MsgRequestFailed   = "인증번호 요청에 실패했습니다. 다시 시도해주세요."
	MsgInvalidCode     = "인증번호를 다시 확인해주세요"
	MsgExpired         = "인증시간이 만료됐어요"
	MsgCheckFailed     = "사용자 확인에 실패했습니다. 다시 시도해주세요."
	MsgVehicleRequired = "전동보장구에 부착된 QR코드 스캔 후 회원가입을 진행해주세요"
	MsgSignupFailed    = "회원가입에 실패했습니다. 다시 시도해주세요."
)

// Phase is where the session is after the phone has been verified.
type Phase int

const (
	PhaseUnverified Phase = iota
	PhaseTokenPending
	PhaseCheckingUser
	PhaseLoginComplete
	PhaseSignupRequired
	PhaseCheckFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnverified:
		return "unverified"
	case PhaseTokenPending:
		return "token_pending"
	case PhaseCheckingUser:
		return "checking_user"
	case PhaseLoginComplete:
		return "login_complete"
	case PhaseSignupRequired:
		return "signup_required"
	case PhaseCheckFailed:
		return "check_failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether the resolver has finished. SignupRequired still accepts SignUp.
func (p Phase) Terminal() bool {
	return p == PhaseLoginComplete || p == PhaseSignupRequired || p == PhaseCheckFailed
}

// Op is a collaborator call in flight.
type Op int

const (
	OpNone Op = iota
	OpRequest
	OpVerify
	OpResolve
	OpSignUp
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpRequest:
		return "request"
	case OpVerify:
		return "verify"
	case OpResolve:
		return "resolve"
	case OpSignUp:
		return "sign_up"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// SignupForm holds the fields entered when the directory has no record of the user.
// Zero dates mean the field is empty or was not a valid calendar date.
type SignupForm struct {
	Name              string
	Model             string
	PurchasedAt       time.Time
	ManufacturedAt    time.Time
	RecipientType     userdomain.RecipientType
	SupportedDistrict userdomain.SupportedDistrict
}

func newSignupForm() SignupForm {
	return SignupForm{
		RecipientType:     userdomain.RecipientGeneral,
		SupportedDistrict: userdomain.DefaultDistrict,
	}
}

func (f SignupForm) ValidName() bool           { return strings.TrimSpace(f.Name) != "" }
func (f SignupForm) ValidModel() bool          { return strings.TrimSpace(f.Model) != "" }
func (f SignupForm) ValidPurchasedAt() bool    { return !f.PurchasedAt.IsZero() }
func (f SignupForm) ValidManufacturedAt() bool { return !f.ManufacturedAt.IsZero() }

// Valid reports whether every required field is filled.
func (f SignupForm) Valid() bool {
	return f.ValidName() && f.ValidModel() && f.ValidPurchasedAt() && f.ValidManufacturedAt()
}

// Profile builds the directory payload for vehicleID.
func (f SignupForm) Profile(vehicleID string) userdomain.Profile {
	return userdomain.Profile{
		Name:              strings.TrimSpace(f.Name),
		Model:             strings.TrimSpace(f.Model),
		PurchasedAt:       f.PurchasedAt,
		ManufacturedAt:    f.ManufacturedAt,
		RecipientType:     f.RecipientType,
		SupportedDistrict: f.SupportedDistrict,
		VehicleID:         vehicleID,
	}
}

// State is an immutable snapshot of a sign-in attempt. Sessions publish a new value on every change.
type State struct {
	PhoneNumber      string
	VerificationCode string
	Handle           ConfirmationHandle
	RemainingSeconds int
	TimerRunning     bool
	Verified         bool
	RequestError     string
	VerifyError      string
	Identity         Identity
	IdentityToken    string
	UserChecked      bool
	UserExists       bool
	Phase            Phase
	Pending          Op
	// Notice is an alert-level message for the signup step.
	Notice string
	// SignupError is the last directory error from SignUp, for diagnostics.
	SignupError string
	// VehicleID is the vehicle id last submitted with SignUp.
	VehicleID string
	Form      SignupForm
	// Version increases by one with every published change.
	Version uint64

	// epoch tags collaborator calls; Reset moves it on so late results are dropped.
	epoch uint64
	// cycle tags timer ticks; each start moves it on so ticks from an old ticker are dropped.
	cycle uint64
}

// InitialState is the state of a fresh session.
func InitialState() State {
	return State{
		RemainingSeconds: ExpirationTime,
		Phase:            PhaseUnverified,
		Form:             newSignupForm(),
	}
}

func (s State) ValidPhoneNumber() bool { return ValidMobileNumber(s.PhoneNumber) }

func (s State) ValidVerificationCode() bool {
	return len(s.VerificationCode) == VerificationCodeLength && DigitsOnly(s.VerificationCode) == s.VerificationCode
}

func (s State) CodeRequested() bool { return s.Handle != "" }

func (s State) TimerExpired() bool { return s.RemainingSeconds <= 0 }

func (s State) TimerActive() bool {
	return s.TimerRunning && s.RemainingSeconds > 0 && !s.Verified
}

// CanRequestVerification gates sending a code.
func (s State) CanRequestVerification() bool {
	return s.ValidPhoneNumber() && !s.CodeRequested() && s.RequestError == "" && s.Pending == OpNone
}

// CanVerifyCode gates confirming a code.
func (s State) CanVerifyCode() bool {
	return s.ValidVerificationCode() && !s.TimerExpired() && !s.Verified && s.CodeRequested() && s.Pending == OpNone
}

// NeedToSignUp reports whether the signup form should be shown.
func (s State) NeedToSignUp() bool {
	return s.Verified && s.UserChecked && !s.UserExists
}

// CanSignUp gates the signup submission. A missing vehicle id is checked on submit.
func (s State) CanSignUp() bool {
	return s.IdentityToken != "" && s.Form.Valid() && s.Pending == OpNone && s.Phase == PhaseSignupRequired
}

// ErrorMessage is the inline message under the code field. Expiry wins over a wrong code.
func (s State) ErrorMessage() string {
	if s.CodeRequested() && s.TimerExpired() {
		return MsgExpired
	}
	return s.VerifyError
}

// RemainingDisplay renders the countdown as M:SS.
func (s State) RemainingDisplay() string {
	r := max(s.RemainingSeconds, 0)
	return fmt.Sprintf("%d:%02d", r/60, r%60)
}

// RemainingSpoken renders the countdown as a sentence for screen readers.
func (s State) RemainingSpoken() string {
	r := max(s.RemainingSeconds, 0)
	return fmt.Sprintf("%d분 %d초 남음", r/60, r%60)
}
