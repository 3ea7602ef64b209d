// Package shell is the terminal sign-in screen. It renders a verification.Session and feeds
// keyboard input back into it.
package shell

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	userdomain "soori/internal/user/domain"
	"soori/internal/verification"
)

const devCodeTimeout = time.Second

// Session is the part of verification.Session the screen drives.
type Session interface {
	UpdatePhoneNumber(raw string)
	RequestVerification()
	UpdateVerificationCode(raw string)
	VerifyCode()
	UpdateName(v string)
	UpdateModel(v string)
	UpdatePurchasedAt(v string)
	UpdateManufacturedAt(v string)
	UpdateRecipientType(v string)
	UpdateSupportedDistrict(v string)
	SignUp(vehicleID string)
	Reset()
	Resume()
	Subscribe() (<-chan verification.State, func())
	Close()
}

// DevCodeSource reveals the code sent for a handle when codes are not delivered by SMS.
type DevCodeSource interface {
	DevCode(ctx context.Context, handle verification.ConfirmationHandle) (string, bool)
}

type field int

const (
	fieldPhone field = iota
	fieldCode
	fieldName
	fieldModel
	fieldPurchasedAt
	fieldManufacturedAt
	fieldRecipientType
	fieldDistrict
	fieldCount
)

type screen int

const (
	screenVerify screen = iota
	screenSignup
	screenDone
)

var screenFields = map[screen][]field{
	screenVerify: {fieldPhone, fieldCode},
	screenSignup: {fieldName, fieldModel, fieldPurchasedAt, fieldManufacturedAt, fieldRecipientType, fieldDistrict},
}

type (
	stateMsg         verification.State
	sessionClosedMsg struct{}
	loadingCheckMsg  struct{}
	devCodeMsg       struct {
		handle verification.ConfirmationHandle
		code   string
	}
)

// Model is the bubbletea model of the sign-in screen.
type Model struct {
	session     Session
	states      <-chan verification.State
	unsubscribe func()
	state       verification.State
	final       verification.State

	vehicleID string
	devCodes  DevCodeSource
	devCode   string

	keys    KeyMap
	theme   Theme
	loading *Loading
	spinner spinner.Model

	inputs       []textinput.Model
	focus        field
	recipientIdx int
	districtIdx  int
	recipients   []userdomain.RecipientType
	districts    []userdomain.SupportedDistrict

	width   int
	leaving bool
}

// NewModel subscribes to session and focuses the phone field.
func NewModel(session Session) Model {
	states, unsubscribe := session.Subscribe()
	model := Model{
		session:     session,
		states:      states,
		unsubscribe: unsubscribe,
		state:       verification.InitialState(),
		keys:        DefaultKeyMap,
		theme:       DefaultTheme,
		loading:     NewLoading(nil),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		recipients:  userdomain.RecipientTypes(),
		districts:   userdomain.SupportedDistricts(),
	}
	model.spinner.Style = model.theme.Focused
	model.inputs = newInputs()
	model.recipientIdx = indexOf(model.recipients, model.state.Form.RecipientType)
	model.districtIdx = indexOf(model.districts, model.state.Form.SupportedDistrict)
	model.setFocus(fieldPhone)
	return model
}

func newInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Prompt = ""
	}
	inputs[fieldPhone].Placeholder = "01012345678"
	inputs[fieldPhone].CharLimit = 11
	inputs[fieldCode].Placeholder = "000000"
	inputs[fieldCode].CharLimit = verification.VerificationCodeLength
	inputs[fieldName].Placeholder = "홍길동"
	inputs[fieldModel].Placeholder = "모델명"
	inputs[fieldPurchasedAt].Placeholder = "YYYY-MM-DD"
	inputs[fieldPurchasedAt].CharLimit = len(userdomain.DateLayout)
	inputs[fieldManufacturedAt].Placeholder = "YYYY-MM-DD"
	inputs[fieldManufacturedAt].CharLimit = len(userdomain.DateLayout)
	return inputs
}

// SetVehicleID sets the vehicle registered on signup. Call before running the program.
func (model *Model) SetVehicleID(id string) { model.vehicleID = id }

// SetDevCodes shows the sent code on screen when source has it.
func (model *Model) SetDevCodes(source DevCodeSource) { model.devCodes = source }

// SetClock sets the clock of the loading indicator.
func (model *Model) SetClock(clock clockwork.Clock) { model.loading = NewLoading(clock) }

// Result is the last state seen before the screen was left.
func (model Model) Result() verification.State { return model.final }

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(listenForState(model.states), textinput.Blink, model.spinner.Tick)
}

func listenForState(ch <-chan verification.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return sessionClosedMsg{}
		}
		return stateMsg(st)
	}
}

// Update implements tea.Model.
func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(msg)

	case stateMsg:
		cmds := model.applyState(verification.State(msg))
		if model.leaving {
			return model, tea.Batch(cmds...)
		}
		cmds = append(cmds, listenForState(model.states))
		return model, tea.Batch(cmds...)

	case sessionClosedMsg:
		return model, tea.Quit

	case loadingCheckMsg:
		return model, model.loadingCmd(model.loading.Refresh())

	case devCodeMsg:
		if msg.handle == model.state.Handle {
			model.devCode = msg.code
		}
		return model, nil

	case tea.FocusMsg:
		model.session.Resume()
		return model, nil

	case tea.WindowSizeMsg:
		model.width = msg.Width
		return model, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(msg)
		return model, cmd
	}

	var cmd tea.Cmd
	model.inputs[model.focus], cmd = model.inputs[model.focus].Update(msg)
	return model, cmd
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, model.keys.Quit):
		return model.leave()
	case key.Matches(msg, model.keys.Submit):
		return model.submit()
	case key.Matches(msg, model.keys.Next):
		cmd := model.moveFocus(1)
		return model, cmd
	case key.Matches(msg, model.keys.Prev):
		cmd := model.moveFocus(-1)
		return model, cmd
	case key.Matches(msg, model.keys.Restart):
		return model.restart()
	}

	if model.focus == fieldRecipientType || model.focus == fieldDistrict {
		switch {
		case key.Matches(msg, model.keys.OptionNext):
			model.cycleOption(1)
		case key.Matches(msg, model.keys.OptionPrev):
			model.cycleOption(-1)
		}
		return model, nil
	}
	if model.locked(model.focus) {
		return model, nil
	}

	input := &model.inputs[model.focus]
	before := input.Value()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	if model.focus == fieldPhone || model.focus == fieldCode {
		if v := input.Value(); verification.DigitsOnly(v) != v {
			input.SetValue(verification.DigitsOnly(v))
		}
	}
	if after := input.Value(); after != before {
		model.dispatchEdit(model.focus, after)
	}
	return model, cmd
}

// locked reports whether the session would ignore edits to f.
func (model Model) locked(f field) bool {
	switch f {
	case fieldPhone:
		return model.state.CodeRequested() || model.state.Pending == verification.OpRequest
	case fieldCode:
		return !model.state.CodeRequested() || model.state.Verified
	}
	return model.state.Pending == verification.OpSignUp
}

func (model Model) dispatchEdit(f field, v string) {
	switch f {
	case fieldPhone:
		model.session.UpdatePhoneNumber(v)
	case fieldCode:
		model.session.UpdateVerificationCode(v)
	case fieldName:
		model.session.UpdateName(v)
	case fieldModel:
		model.session.UpdateModel(v)
	case fieldPurchasedAt:
		model.session.UpdatePurchasedAt(v)
	case fieldManufacturedAt:
		model.session.UpdateManufacturedAt(v)
	}
}

func (model *Model) cycleOption(delta int) {
	if model.locked(model.focus) {
		return
	}
	switch model.focus {
	case fieldRecipientType:
		model.recipientIdx = wrap(model.recipientIdx+delta, len(model.recipients))
		model.session.UpdateRecipientType(string(model.recipients[model.recipientIdx]))
	case fieldDistrict:
		model.districtIdx = wrap(model.districtIdx+delta, len(model.districts))
		model.session.UpdateSupportedDistrict(string(model.districts[model.districtIdx]))
	}
}

// submit runs the action of the focused field behind the same gate as its button.
func (model Model) submit() (tea.Model, tea.Cmd) {
	switch model.currentScreen() {
	case screenDone:
		return model.leave()
	case screenSignup:
		if model.state.CanSignUp() {
			model.session.SignUp(model.vehicleID)
		}
		return model, nil
	}
	switch model.focus {
	case fieldPhone:
		if model.state.CanRequestVerification() {
			model.session.RequestVerification()
		}
	case fieldCode:
		if model.state.CanVerifyCode() {
			model.session.VerifyCode()
		}
	}
	return model, nil
}

// leave resets the session before closing it so no call result outlives the screen.
func (model Model) leave() (tea.Model, tea.Cmd) {
	if !model.leaving {
		model.final = model.state
		model.leaving = true
		model.session.Reset()
		model.unsubscribe()
		model.session.Close()
	}
	return model, tea.Quit
}

func (model Model) restart() (tea.Model, tea.Cmd) {
	model.session.Reset()
	model.inputs = newInputs()
	model.devCode = ""
	model.recipientIdx = indexOf(model.recipients, userdomain.RecipientGeneral)
	model.districtIdx = indexOf(model.districts, userdomain.DefaultDistrict)
	model.setFocus(fieldPhone)
	return model, textinput.Blink
}

func (model *Model) applyState(next verification.State) []tea.Cmd {
	prev := model.state
	prevScreen := model.currentScreen()
	model.state = next

	var cmds []tea.Cmd
	if next.Handle != prev.Handle {
		model.devCode = ""
		if next.Handle != "" {
			cmds = append(cmds, model.fetchDevCode(next.Handle))
			model.setFocus(fieldCode)
		}
	}
	if s := model.currentScreen(); s != prevScreen {
		if fields := screenFields[s]; len(fields) > 0 {
			model.setFocus(fields[0])
		} else {
			model.blurAll()
		}
	}
	if cmd := model.loadingCmd(model.loading.Set(next.Pending != verification.OpNone)); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (model Model) loadingCmd(recheck time.Duration) tea.Cmd {
	if recheck <= 0 {
		return nil
	}
	return tea.Tick(recheck, func(time.Time) tea.Msg { return loadingCheckMsg{} })
}

func (model Model) fetchDevCode(handle verification.ConfirmationHandle) tea.Cmd {
	source := model.devCodes
	if source == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), devCodeTimeout)
		defer cancel()
		code, ok := source.DevCode(ctx, handle)
		if !ok {
			return nil
		}
		return devCodeMsg{handle: handle, code: code}
	}
}

func (model Model) currentScreen() screen {
	switch {
	case model.state.Phase == verification.PhaseLoginComplete:
		return screenDone
	case model.state.NeedToSignUp():
		return screenSignup
	}
	return screenVerify
}

func (model *Model) moveFocus(delta int) tea.Cmd {
	fields := screenFields[model.currentScreen()]
	if len(fields) == 0 {
		return nil
	}
	idx := 0
	for i, f := range fields {
		if f == model.focus {
			idx = i
			break
		}
	}
	return model.setFocus(fields[wrap(idx+delta, len(fields))])
}

func (model *Model) setFocus(f field) tea.Cmd {
	model.blurAll()
	model.focus = f
	return model.inputs[f].Focus()
}

func (model *Model) blurAll() {
	for i := range model.inputs {
		model.inputs[i].Blur()
	}
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func indexOf[T comparable](values []T, v T) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return 0
}
