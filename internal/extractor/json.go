package extractor

import (
	"encoding/json"
	"fmt"

	"vidbee/internal/format"
)

// flexibleInt accepts yt-dlp's duration field as either an int or a
// float (some extractors report fractional seconds).
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = flexibleInt(i)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexibleInt(n)
		return nil
	}
	*f = 0
	return nil
}

// flexibleString accepts a field that yt-dlp sometimes reports as a
// number and sometimes as a string (format_note, quality, tbr-adjacent
// fields vary by extractor).
type flexibleString string

func (s *flexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexibleString(str)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = flexibleString(fmt.Sprintf("%g", n))
		return nil
	}
	*s = ""
	return nil
}

// rawFormat mirrors one element of yt-dlp's "formats" array.
type rawFormat struct {
	FormatID       string         `json:"format_id"`
	Ext            string         `json:"ext"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	FPS            float64        `json:"fps"`
	VCodec         string         `json:"vcodec"`
	ACodec         string         `json:"acodec"`
	TBR            float64        `json:"tbr"`
	Filesize       int64          `json:"filesize"`
	FilesizeApprox int64          `json:"filesize_approx"`
	FormatNote     flexibleString `json:"format_note"`
	Protocol       string         `json:"protocol"`
	VideoExt       string         `json:"video_ext"`
	AudioExt       string         `json:"audio_ext"`
	Language       string         `json:"language"`
}

func (r rawFormat) toDescriptor() format.Descriptor {
	return format.Descriptor{
		ID:             r.FormatID,
		Ext:            r.Ext,
		Width:          r.Width,
		Height:         r.Height,
		FPS:            r.FPS,
		VCodec:         r.VCodec,
		ACodec:         r.ACodec,
		TBR:            r.TBR,
		Filesize:       r.Filesize,
		FilesizeApprox: r.FilesizeApprox,
		FormatNote:     string(r.FormatNote),
		Protocol:       r.Protocol,
		VideoExt:       r.VideoExt,
		AudioExt:       r.AudioExt,
		Language:       r.Language,
	}
}

// rawVideoInfo mirrors the subset of yt-dlp's -j output the core reads.
type rawVideoInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Thumbnail   string      `json:"thumbnail"`
	Duration    flexibleInt `json:"duration"`
	Uploader    string      `json:"uploader"`
	Channel     string      `json:"channel"`
	Description string      `json:"description"`
	ViewCount   int64       `json:"view_count"`
	WebpageURL  string      `json:"webpage_url"`
	URL         string      `json:"url"`
	Formats     []rawFormat `json:"formats"`
}

func (r rawVideoInfo) toVideoInfo() VideoInfo {
	formats := make([]format.Descriptor, 0, len(r.Formats))
	for _, f := range r.Formats {
		formats = append(formats, f.toDescriptor())
	}
	webpageURL := r.WebpageURL
	if webpageURL == "" {
		webpageURL = r.URL
	}
	return VideoInfo{
		ID:          r.ID,
		Title:       r.Title,
		Thumbnail:   r.Thumbnail,
		Duration:    int(r.Duration),
		Uploader:    r.Uploader,
		Channel:     r.Channel,
		Description: r.Description,
		ViewCount:   r.ViewCount,
		WebpageURL:  webpageURL,
		Formats:     formats,
	}
}

// rawPlaylist mirrors yt-dlp's single-object --flat-playlist JSON shape,
// used when the extractor emits one wrapping object rather than
// newline-delimited entries.
type rawPlaylist struct {
	Type    string         `json:"_type"`
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Entries []rawVideoInfo `json:"entries"`
}
