package audio

// AudioSourceKind selects how an audio source captures audio.
type AudioSourceKind int

const (
	AudioSourceLoopback AudioSourceKind = iota
	AudioSourceApp
	AudioSourceDevice
)

// AudioSourceSelection names the capture path: loopback needs no name,
// app capture names a process, device capture names a device.
type AudioSourceSelection struct {
	Kind AudioSourceKind
	Name string
}
