package shell

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soori/internal/verification"
)

// View implements tea.Model.
func (model Model) View() string {
	if model.leaving {
		return ""
	}
	var body string
	switch model.currentScreen() {
	case screenDone:
		body = model.viewDone()
	case screenSignup:
		body = model.viewSignup()
	default:
		body = model.viewVerify()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, "", model.viewFooter())
}

func (model Model) viewVerify() string {
	st := model.state
	var b strings.Builder
	b.WriteString(model.theme.Title.Render("휴대폰 번호로 시작하기"))
	b.WriteString("\n")

	b.WriteString(model.label(fieldPhone, "휴대폰 번호"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		model.inputs[fieldPhone].View(), "  ",
		model.button("인증번호 받기", st.CanRequestVerification()),
	))
	b.WriteString("\n")
	if st.RequestError != "" {
		b.WriteString(model.theme.Error.Render(st.RequestError))
		b.WriteString("\n")
	}

	if st.CodeRequested() {
		b.WriteString("\n")
		b.WriteString(model.label(fieldCode, "인증번호"))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			model.inputs[fieldCode].View(), "  ",
			model.viewTimer(), "  ",
			model.button("확인", st.CanVerifyCode()),
		))
		b.WriteString("\n")
		if msg := st.ErrorMessage(); msg != "" {
			b.WriteString(model.theme.Error.Render(msg))
			b.WriteString("\n")
		}
		if model.devCode != "" {
			b.WriteString(model.theme.Faint.Render("개발용 인증번호: " + model.devCode))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (model Model) viewTimer() string {
	st := model.state
	if st.Verified {
		return ""
	}
	return model.theme.Timer.Render(st.RemainingDisplay()) + " " + model.theme.Faint.Render("("+st.RemainingSpoken()+")")
}

func (model Model) viewSignup() string {
	st := model.state
	form := st.Form
	var b strings.Builder
	b.WriteString(model.theme.Title.Render("회원가입"))
	b.WriteString("\n")

	b.WriteString(model.textField(fieldName, "이름", form.ValidName(), ""))
	b.WriteString(model.textField(fieldModel, "모델명", form.ValidModel(), ""))
	b.WriteString(model.textField(fieldPurchasedAt, "구매일", form.ValidPurchasedAt(), "YYYY-MM-DD 형식으로 입력해주세요"))
	b.WriteString(model.textField(fieldManufacturedAt, "제조일", form.ValidManufacturedAt(), "YYYY-MM-DD 형식으로 입력해주세요"))
	b.WriteString(model.selectField(fieldRecipientType, "수급자 유형", string(form.RecipientType)))
	b.WriteString(model.selectField(fieldDistrict, "지원 자치구", string(form.SupportedDistrict)))

	b.WriteString("\n")
	b.WriteString(model.button("회원가입", st.CanSignUp()))
	b.WriteString("\n")
	if st.Notice != "" {
		b.WriteString(model.theme.Notice.Render(st.Notice))
		b.WriteString("\n")
	}
	return b.String()
}

func (model Model) textField(f field, label string, valid bool, hint string) string {
	var b strings.Builder
	b.WriteString(model.label(f, label))
	b.WriteString("\n")
	b.WriteString(model.inputs[f].View())
	b.WriteString("\n")
	if hint != "" && !valid && model.inputs[f].Value() != "" {
		b.WriteString(model.theme.Error.Render(hint))
		b.WriteString("\n")
	}
	return b.String()
}

func (model Model) selectField(f field, label, value string) string {
	style := model.theme.Faint
	if model.focus == f {
		style = model.theme.Focused
	}
	return model.label(f, label) + "\n" + style.Render("‹ "+value+" ›") + "\n"
}

func (model Model) viewDone() string {
	return model.theme.Success.Render("로그인되었습니다") + "\n" +
		model.theme.Faint.Render(verification.FormatE164(model.state.PhoneNumber))
}

func (model Model) viewFooter() string {
	if model.loading.Visible() {
		return model.spinner.View() + " " + model.theme.Faint.Render("처리 중...")
	}
	help := []string{"enter 확인", "tab 다음", "ctrl+r 처음부터", "esc 나가기"}
	if model.currentScreen() == screenSignup {
		help = append([]string{"←/→ 선택"}, help...)
	}
	return model.theme.Faint.Render(strings.Join(help, " · "))
}

func (model Model) label(f field, text string) string {
	if model.focus == f && model.currentScreen() != screenDone {
		return model.theme.Focused.Render("› " + text)
	}
	return model.theme.Label.Render("  " + text)
}

// button renders an action, dimmed when its gate is closed.
func (model Model) button(text string, enabled bool) string {
	if enabled {
		return model.theme.Button.Render(text)
	}
	return model.theme.Disabled.Render(text)
}
