package models

import (
	"sort"
	"strings"
)

// Format is a target container the muxer can write.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatMOV  Format = "mov"
	FormatMKV  Format = "mkv"
	FormatWebM Format = "webm"
	FormatTS   Format = "ts"
	FormatM4A  Format = "m4a"
)

type formatInfo struct {
	muxer       string
	contentType string
	faststart   bool
}

var formats = map[Format]formatInfo{
	FormatMP4:  {muxer: "mp4", contentType: "video/mp4", faststart: true},
	FormatMOV:  {muxer: "mov", contentType: "video/quicktime", faststart: true},
	FormatMKV:  {muxer: "matroska", contentType: "video/x-matroska"},
	FormatWebM: {muxer: "webm", contentType: "video/webm"},
	FormatTS:   {muxer: "mpegts", contentType: "video/mp2t"},
	FormatM4A:  {muxer: "ipod", contentType: "audio/mp4", faststart: true},
}

func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	return f, f.Valid()
}

func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

func (f Format) Extension() string {
	return string(f)
}

// MuxerName is the ffmpeg -f value for the format.
func (f Format) MuxerName() string {
	return formats[f].muxer
}

func (f Format) ContentType() string {
	if info, ok := formats[f]; ok {
		return info.contentType
	}
	return "application/octet-stream"
}

// FastStart reports whether the moov atom should be moved to the front.
func (f Format) FastStart() bool {
	return formats[f].faststart
}

func SupportedFormats() []Format {
	out := make([]Format, 0, len(formats))
	for f := range formats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}
