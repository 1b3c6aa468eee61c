package server

// askResponse はPOST /gemini/askのレスポンス。
type askResponse struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// profileResponse はGET /user/profileのレスポンス。
type profileResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// messageResponse はGET /user/messagesの1件。
// Imageは添付が無いか読み込めない場合にnullになる。
type messageResponse struct {
	Content string  `json:"content"`
	Image   *string `json:"image"`
	Role    string  `json:"role"`
}

type errorResponse struct {
	Error string `json:"error"`
}
