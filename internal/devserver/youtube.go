package devserver

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidYouTubeURL はYouTube動画のURLとして解釈できないことを表す。
var ErrInvalidYouTubeURL = errors.New("YouTube動画のURLではありません")

// videoIDPattern はYouTube動画IDの形式。
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// youtubeHosts は動画IDをクエリやパスに持つYouTubeのホスト。
var youtubeHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

// youtubeVideo はURLから取り出した動画情報。
type youtubeVideo struct {
	// ID は11文字の動画ID。
	ID string
}

// WatchURL は正規化した視聴ページのURLを返す。
func (v youtubeVideo) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ThumbnailURL はサムネイル画像のURLを返す。
func (v youtubeVideo) ThumbnailURL() string {
	return "https://img.youtube.com/vi/" + v.ID + "/hqdefault.jpg"
}

// parseYouTubeURL はwatch・短縮・shorts・embed形式のURLから動画IDを取り出す。
func parseYouTubeURL(raw string) (youtubeVideo, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return youtubeVideo{}, ErrInvalidYouTubeURL
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case isYouTubeHost(host):
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"),
			strings.HasPrefix(u.Path, "/embed/"),
			strings.HasPrefix(u.Path, "/live/"):
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) >= 2 {
				id = parts[1]
			}
		}
	}

	if !videoIDPattern.MatchString(id) {
		return youtubeVideo{}, ErrInvalidYouTubeURL
	}
	return youtubeVideo{ID: id}, nil
}

// isYouTubeHost はhostがyoutube.comのホストかどうかを返す。
func isYouTubeHost(host string) bool {
	_, ok := youtubeHosts[host]
	return ok
}
