package auth

// Decision はガードの評価結果です。
type Decision int

const (
	// Allow はリクエストを続行します。
	Allow Decision = iota
	// RedirectToLogin は匿名ユーザーをログイン画面へ誘導します。
	RedirectToLogin
	// Forbid はアクセスを拒否します。ログイン画面には誘導しません。
	Forbid
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case Forbid:
		return "forbid"
	default:
		return "unknown"
	}
}

// Policy はセッションのスナップショットだけを入力とする純粋関数です。
type Policy func(Identity) Decision

// RequireAuthenticated はログイン済みであれば許可し、匿名ならログインへ誘導します。
func RequireAuthenticated(id Identity) Decision {
	if !id.Authenticated() {
		return RedirectToLogin
	}
	return Allow
}

// RequireAdmin は管理者のみ許可します。
// 匿名・一般ユーザーのどちらも Forbid で、再ログインを促すことはしません。
func RequireAdmin(id Identity) Decision {
	if !id.Authenticated() || !id.IsAdmin {
		return Forbid
	}
	return Allow
}

// All は全ポリシーが Allow のときだけ Allow を返します。最初に拒否したポリシーの結果を返します。
func All(policies ...Policy) Policy {
	return func(id Identity) Decision {
		for _, p := range policies {
			if d := p(id); d != Allow {
				return d
			}
		}
		return Allow
	}
}
