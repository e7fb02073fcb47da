package selfcheck

import "strings"

// CheckAnswers gates Questions -> UserInfo.
func CheckAnswers(r *Responses) error {
	if missing := r.Unanswered(); len(missing) > 0 {
		return &IncompleteAnswersError{Missing: missing}
	}
	return nil
}

// CheckUserInfo gates UserInfo -> Results. Organization and role are
// optional.
func CheckUserInfo(info UserInfo) error {
	fields := make(map[string]string)

	if strings.TrimSpace(info.Name) == "" {
		fields["name"] = MsgNameRequired
	}
	if msg := emailMessage(info.Email); msg != "" {
		fields["email"] = msg
	}

	if len(fields) > 0 {
		return &InvalidUserInfoError{Fields: fields}
	}
	return nil
}

func emailMessage(email string) string {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return MsgEmailRequired
	case !strings.Contains(email, "@") || !strings.Contains(email, "."):
		return MsgEmailInvalid
	}
	return ""
}
