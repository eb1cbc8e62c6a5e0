package lastfm

// NowPlayingTrack is the metadata sent with track.updateNowPlaying.
type NowPlayingTrack struct {
	Artist string
	Track  string
	Album  string
}
