package model

// TTSVoice 语音合成的预置音色
type TTSVoice string

const (
	VoiceKore   TTSVoice = "Kore"
	VoicePuck   TTSVoice = "Puck"
	VoiceZephyr TTSVoice = "Zephyr"
	VoiceCharon TTSVoice = "Charon"
	VoiceFenrir TTSVoice = "Fenrir"
	VoiceAoede  TTSVoice = "Aoede"
)

var AvailableVoices = []TTSVoice{
	VoiceKore,
	VoicePuck,
	VoiceZephyr,
	VoiceCharon,
	VoiceFenrir,
	VoiceAoede,
}

func (v TTSVoice) Valid() bool {
	for _, av := range AvailableVoices {
		if v == av {
			return true
		}
	}
	return false
}
