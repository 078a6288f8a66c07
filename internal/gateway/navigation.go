package gateway

// 画面のルート。
const (
	// RouteHome はランディングページ。
	RouteHome = "/"
	// RouteLogin はログイン画面。
	RouteLogin = "/login"
	// RouteRegister はユーザー登録画面。
	RouteRegister = "/register"
	// RouteDashboard はプロジェクト一覧画面。
	RouteDashboard = "/dashboard"
	// RouteLoginRegistered は登録完了後に遷移するログイン画面。
	RouteLoginRegistered = RouteLogin + "?registered=1"
)

// Navigator は画面遷移を引き起こす。
// 遷移は画面内のルート変更ではなく完全な遷移として扱い、メモリ上の状態は破棄される。
type Navigator interface {
	// Navigate はpathへ遷移する。同じパスへの複数回の遷移は1回と同じ効果を持つ。
	Navigate(path string)
}

// NavigatorFunc は関数をNavigatorとして扱うためのアダプタ。
type NavigatorFunc func(path string)

// Navigate はf(path)を呼び出す。
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}
