package verification

import (
	"fmt"
	"strings"

	userdomain "soori/internal/user/domain"
)

// Event titles sent to the event log.
const (
	EventCodeSent       = "인증번호 발송 성공"
	EventCodeSendFailed = "인증번호 발송 실패"
	EventSignupFailed   = "회원가입 실패"
)

type event interface{}

type (
	phoneEdited     struct{ raw string }
	requestPressed  struct{}
	codeEdited      struct{ raw string }
	verifyPressed   struct{}
	signUpPressed   struct{ vehicleID string }
	resetRequested  struct{}
	resumeRequested struct{}
	tick            struct{ cycle uint64 }

	formEdited struct {
		field formField
		value string
	}

	requestDone struct {
		epoch  uint64
		handle ConfirmationHandle
		err    error
	}
	verifyDone struct {
		epoch    uint64
		identity *Identity
		err      error
	}
	tokenDone struct {
		epoch uint64
		token string
		err   error
	}
	checkDone struct {
		epoch  uint64
		result *CheckResult
		err    error
	}
	signUpDone struct {
		epoch uint64
		user  *userdomain.User
		err   error
	}
)

type formField int

const (
	fieldName formField = iota
	fieldModel
	fieldPurchasedAt
	fieldManufacturedAt
	fieldRecipientType
	fieldSupportedDistrict
)

type effect interface{}

type (
	startTimer struct{ cycle uint64 }
	stopTimer  struct{}

	callRequest struct {
		epoch uint64
		e164  string
	}
	callVerify struct {
		epoch  uint64
		handle ConfirmationHandle
		code   string
	}
	callToken struct {
		epoch    uint64
		identity Identity
	}
	callCheck struct {
		epoch uint64
		token string
	}
	callSignUp struct {
		epoch   uint64
		token   string
		profile userdomain.Profile
	}
	recordEvent struct {
		title       string
		description string
		fatal       bool
	}
)

// reduce is the only place State changes. It never blocks; anything with a side effect is returned as an effect.
func reduce(s State, ev event) (State, []effect) {
	switch ev := ev.(type) {
	case phoneEdited:
		if s.CodeRequested() || s.Pending == OpRequest {
			return s, nil
		}
		s.PhoneNumber = DigitsOnly(ev.raw)
		s.RequestError = ""
		return s, nil

	case requestPressed:
		if !s.CanRequestVerification() {
			return s, nil
		}
		s.Pending = OpRequest
		return s, []effect{callRequest{epoch: s.epoch, e164: FormatE164(s.PhoneNumber)}}

	case requestDone:
		if ev.epoch != s.epoch || s.Pending != OpRequest {
			return s, nil
		}
		s.Pending = OpNone
		if ev.err != nil || ev.handle == "" {
			s.RequestError = MsgRequestFailed
			return s, []effect{recordEvent{
				title:       EventCodeSendFailed,
				description: fmt.Sprintf("%s\n%s", s.PhoneNumber, errText(ev.err, "empty confirmation handle")),
				fatal:       true,
			}}
		}
		s.Handle = ev.handle
		s.RequestError = ""
		s.RemainingSeconds = ExpirationTime
		s.TimerRunning = true
		s.cycle++
		return s, []effect{
			startTimer{cycle: s.cycle},
			recordEvent{title: EventCodeSent, description: s.PhoneNumber},
		}

	case codeEdited:
		if s.Verified {
			return s, nil
		}
		prev := s.VerificationCode
		code := DigitsOnly(ev.raw)
		if len(code) > VerificationCodeLength {
			code = code[:VerificationCodeLength]
		}
		s.VerificationCode = code
		s.VerifyError = ""
		if len(code) == VerificationCodeLength && code != prev && s.CanVerifyCode() {
			return startVerify(s)
		}
		return s, nil

	case verifyPressed:
		if !s.CanVerifyCode() {
			return s, nil
		}
		return startVerify(s)

	case verifyDone:
		if ev.epoch != s.epoch || s.Pending != OpVerify {
			return s, nil
		}
		s.Pending = OpNone
		if ev.err != nil || ev.identity == nil {
			s.VerifyError = MsgInvalidCode
			return s, nil
		}
		s.TimerRunning = false
		s.Verified = true
		s.Identity = *ev.identity
		s.Phase = PhaseTokenPending
		s.Pending = OpResolve
		return s, []effect{stopTimer{}, callToken{epoch: s.epoch, identity: s.Identity}}

	case tokenDone:
		if ev.epoch != s.epoch || s.Phase != PhaseTokenPending {
			return s, nil
		}
		if ev.err != nil || ev.token == "" {
			return checkFailed(s), nil
		}
		s.IdentityToken = ev.token
		s.Phase = PhaseCheckingUser
		return s, []effect{callCheck{epoch: s.epoch, token: s.IdentityToken}}

	case checkDone:
		if ev.epoch != s.epoch || s.Phase != PhaseCheckingUser {
			return s, nil
		}
		if ev.err != nil || ev.result == nil {
			return checkFailed(s), nil
		}
		s.Pending = OpNone
		s.UserChecked = true
		s.UserExists = ev.result.Exists
		if s.UserExists {
			s.Phase = PhaseLoginComplete
		} else {
			s.Phase = PhaseSignupRequired
		}
		return s, nil

	case formEdited:
		if s.Pending == OpSignUp {
			return s, nil
		}
		s.Form = applyFormEdit(s.Form, ev.field, ev.value)
		s.Notice = ""
		return s, nil

	case signUpPressed:
		if !s.CanSignUp() {
			return s, nil
		}
		vehicleID := strings.TrimSpace(ev.vehicleID)
		if vehicleID == "" {
			s.Notice = MsgVehicleRequired
			return s, nil
		}
		s.Pending = OpSignUp
		s.VehicleID = vehicleID
		s.Notice = ""
		s.SignupError = ""
		return s, []effect{callSignUp{epoch: s.epoch, token: s.IdentityToken, profile: s.Form.Profile(vehicleID)}}

	case signUpDone:
		if ev.epoch != s.epoch || s.Pending != OpSignUp {
			return s, nil
		}
		s.Pending = OpNone
		if ev.err != nil {
			s.Notice = MsgSignupFailed
			s.SignupError = ev.err.Error()
			return s, []effect{recordEvent{
				title:       EventSignupFailed,
				description: signupDescription(s),
				fatal:       true,
			}}
		}
		s.UserExists = true
		s.Phase = PhaseLoginComplete
		return s, nil

	case tick:
		if ev.cycle != s.cycle || !s.TimerRunning {
			return s, nil
		}
		s.RemainingSeconds = max(0, s.RemainingSeconds-1)
		if s.RemainingSeconds == 0 {
			s.TimerRunning = false
			return s, []effect{stopTimer{}}
		}
		return s, nil

	case resetRequested:
		next := InitialState()
		next.Version = s.Version
		next.epoch = s.epoch + 1
		next.cycle = s.cycle + 1
		return next, []effect{stopTimer{}}

	case resumeRequested:
		if s.TimerRunning || !s.CodeRequested() || s.Verified || s.RemainingSeconds <= 0 {
			return s, nil
		}
		s.TimerRunning = true
		s.cycle++
		return s, []effect{startTimer{cycle: s.cycle}}
	}
	return s, nil
}

func startVerify(s State) (State, []effect) {
	s.Pending = OpVerify
	return s, []effect{callVerify{epoch: s.epoch, handle: s.Handle, code: s.VerificationCode}}
}

func checkFailed(s State) State {
	s.Pending = OpNone
	s.Phase = PhaseCheckFailed
	s.UserChecked = false
	s.VerifyError = MsgCheckFailed
	return s
}

func applyFormEdit(f SignupForm, field formField, value string) SignupForm {
	switch field {
	case fieldName:
		f.Name = value
	case fieldModel:
		f.Model = value
	case fieldPurchasedAt:
		f.PurchasedAt, _ = userdomain.ParseDate(value)
	case fieldManufacturedAt:
		f.ManufacturedAt, _ = userdomain.ParseDate(value)
	case fieldRecipientType:
		if rt := userdomain.RecipientType(value); rt.Valid() {
			f.RecipientType = rt
		}
	case fieldSupportedDistrict:
		if d := userdomain.SupportedDistrict(value); d.Valid() {
			f.SupportedDistrict = d
		}
	}
	return f
}

func signupDescription(s State) string {
	p := s.Form.Profile("")
	return fmt.Sprintf("이름: %s, 전화번호: %s, 모델: %s, 구매일: %s, 제조일: %s, 수급자 유형: %s, 지원 자치구: %s, vehicleId: %s\n%s",
		p.Name, s.PhoneNumber, p.Model,
		userdomain.FormatDate(p.PurchasedAt), userdomain.FormatDate(p.ManufacturedAt),
		p.RecipientType, p.SupportedDistrict, s.VehicleID, s.SignupError)
}

func errText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
