package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/devconf/types"
)

const wfbConf = `### unit: drone or gs
unit=drone
wlan=wlan0
region=BO
channel=149
frequency=5745
txpower=1
bandwidth=20
stbc=0
ldpc=0
mcs_index=1
stream=0
link_id=7669206
udp_port=5600
rcv_buf=456000
frame_type=data
fec_k=8
fec_n=12
pool_timeout=0
guard_interval=long
`

const wifibroadcastCfg = `[common]
wifi_channel = 161
wifi_region = 'BO'

[gs_mavlink]
peer = 'connect://127.0.0.1:14560'

[gs_video]
peer = 'connect://127.0.0.1:5600'
`

const majesticYAML = `system:
  webAdminSession: 2
  logLevel: info
video0:
  enabled: true
  codec: h265   # main stream
  fps: 30
  size: 1920x1080
isp:
  exposure: 10
  sensorConfig: /etc/sensors/imx415.bin
records:
  enabled: false
`

func TestRoundTripUnmodified(t *testing.T) {
	cases := []struct {
		name    string
		dialect types.Dialect
		raw     string
	}{
		{"wfb.conf", types.DialectLineKV, wfbConf},
		{"crlf", types.DialectLineKV, "channel=149\r\n# comment\r\n\r\nregion=US\r\n"},
		{"no trailing newline", types.DialectLineKV, "channel=149\nregion=US"},
		{"empty", types.DialectLineKV, ""},
		{"odd lines", types.DialectLineKV, "  spaced = value  \n=novalue\nnot a pair\n;semi\n"},
		{"screen mode", types.DialectLineKV, "1920x1080@60\n"},
		{"wifibroadcast.cfg", types.DialectSectionedKV, wifibroadcastCfg},
		{"global before header", types.DialectSectionedKV, "x=1\n\n[a]\ny = 2\n"},
		{"majestic.yaml", types.DialectYAMLLike, majesticYAML},
		{"yaml deep nesting", types.DialectYAMLLike, "osd:\n  enabled: true\n  font:\n    size: 12\n  items:\n    - a\n    - b\n"},
		{"yaml comments", types.DialectYAMLLike, "# header\nvideo0:\n  # inner\n  fps: 30 # fps\n\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse(tc.dialect, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.raw, Serialize(doc))

			again, err := Parse(tc.dialect, Serialize(doc))
			require.NoError(t, err)
			assert.True(t, Equal(doc, again))
			assert.Equal(t, doc.Map(), again.Map())
		})
	}
}

func TestScenarioChannelChange(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "channel=149\n#comment\nregion=US\n")
	require.NoError(t, err)

	out, err := ApplyChanges(doc, []types.Change{{Key: "channel", Value: "161"}})
	require.NoError(t, err)
	assert.Equal(t, "channel=161\n#comment\nregion=US\n", Serialize(out))
}

func TestKeyUpdateIsLocal(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, wfbConf)
	require.NoError(t, err)

	out, err := ApplyChanges(doc, []types.Change{{Key: "mcs_index", Value: "3"}})
	require.NoError(t, err)

	before := strings.Split(wfbConf, "\n")
	after := strings.Split(Serialize(out), "\n")
	require.Len(t, after, len(before))
	for i := range before {
		if strings.HasPrefix(before[i], "mcs_index=") {
			assert.Equal(t, "mcs_index=3", after[i])
			continue
		}
		assert.Equal(t, before[i], after[i], "line %d", i+1)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	changes := []types.Change{
		{Key: "video0.fps", Value: "60"},
		{Key: "video0.bitrate", Value: "4096"},
		{Key: "fpv.enabled", Value: "true"},
	}
	doc, err := Parse(types.DialectYAMLLike, majesticYAML)
	require.NoError(t, err)

	once, err := ApplyChanges(doc, changes)
	require.NoError(t, err)
	twice, err := ApplyChanges(once, changes)
	require.NoError(t, err)
	assert.Equal(t, Serialize(once), Serialize(twice))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, wfbConf)
	require.NoError(t, err)

	_, err = ApplyChanges(doc, []types.Change{{Key: "channel", Value: "36"}, {Key: "new_key", Value: "1"}})
	require.NoError(t, err)

	assert.Equal(t, wfbConf, Serialize(doc))
	v, _ := doc.Get("channel")
	assert.Equal(t, "149", v)
	assert.False(t, doc.Has("new_key"))
}

func TestLineKVAppend(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "channel=149\nregion=US\n")
	require.NoError(t, err)

	out, err := doc.Set("txpower", "20")
	require.NoError(t, err)
	assert.Equal(t, "channel=149\nregion=US\ntxpower=20\n", Serialize(out))

	noNewline, err := Parse(types.DialectLineKV, "channel=149")
	require.NoError(t, err)
	out, err = noNewline.Set("region", "US")
	require.NoError(t, err)
	assert.Equal(t, "channel=149\nregion=US", Serialize(out))

	empty, err := Parse(types.DialectLineKV, "")
	require.NoError(t, err)
	out, err = empty.Set("unit", "gs")
	require.NoError(t, err)
	assert.Equal(t, "unit=gs\n", Serialize(out))
}

func TestLineKVKeepsSpacingAndCR(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "  power =  10  \r\nother=1\r\n")
	require.NoError(t, err)

	v, ok := doc.Get("power")
	require.True(t, ok)
	assert.Equal(t, "10", v)

	out, err := doc.Set("power", "25")
	require.NoError(t, err)
	assert.Equal(t, "  power =  25  \r\nother=1\r\n", Serialize(out))
}

func TestDuplicateKeysLastOccurrenceOwns(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "channel=149\nregion=US\nchannel=161\n")
	require.NoError(t, err)

	v, ok := doc.Get("channel")
	require.True(t, ok)
	assert.Equal(t, "161", v)
	assert.Equal(t, []string{"region", "channel"}, doc.Keys())

	out, err := doc.Set("channel", "36")
	require.NoError(t, err)
	assert.Equal(t, "channel=149\nregion=US\nchannel=36\n", Serialize(out))
}

func TestSectionedKV(t *testing.T) {
	doc, err := Parse(types.DialectSectionedKV, wifibroadcastCfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"common", "gs_mavlink", "gs_video"}, doc.Sections())
	peer, ok := doc.Get("gs_video.peer")
	require.True(t, ok)
	assert.Equal(t, "'connect://127.0.0.1:5600'", peer)
	_, ok = doc.Get("peer")
	assert.False(t, ok, "keys are scoped by section")

	out, err := ApplyChanges(doc, []types.Change{
		{Key: "common.wifi_channel", Value: "149"},
		{Key: "common.bandwidth", Value: "20"},
		{Key: "gs_osd.enabled", Value: "true"},
	})
	require.NoError(t, err)
	want := `[common]
wifi_channel = 149
wifi_region = 'BO'
bandwidth = 20

[gs_mavlink]
peer = 'connect://127.0.0.1:14560'

[gs_video]
peer = 'connect://127.0.0.1:5600'
[gs_osd]
enabled = true
`
	assert.Equal(t, want, Serialize(out))
}

func TestSectionedKVGlobalKey(t *testing.T) {
	doc, err := Parse(types.DialectSectionedKV, "x=1\n\n[a]\ny=2\n")
	require.NoError(t, err)

	out, err := doc.Set("z", "3")
	require.NoError(t, err)
	assert.Equal(t, "x=1\nz=3\n\n[a]\ny=2\n", Serialize(out))

	v, ok := out.Get("z")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestYAMLLike(t *testing.T) {
	doc, err := Parse(types.DialectYAMLLike, majesticYAML)
	require.NoError(t, err)

	vcodec, ok := doc.Get("video0.codec")
	require.True(t, ok)
	assert.Equal(t, "h265", vcodec)

	out, err := ApplyChanges(doc, []types.Change{
		{Key: "video0.codec", Value: "h264"},
		{Key: "video0.fps", Value: "60"},
		{Key: "video0.bitrate", Value: "4096"},
		{Key: "fpv.enabled", Value: "true"},
	})
	require.NoError(t, err)
	want := `system:
  webAdminSession: 2
  logLevel: info
video0:
  enabled: true
  codec: h264   # main stream
  fps: 60
  size: 1920x1080
  bitrate: 4096
isp:
  exposure: 10
  sensorConfig: /etc/sensors/imx415.bin
records:
  enabled: false
fpv:
  enabled: true
`
	assert.Equal(t, want, Serialize(out))
}

func TestYAMLLikeDeepLinesAreOpaque(t *testing.T) {
	raw := "osd:\n  enabled: true\n  font:\n    size: 12\n"
	doc, err := Parse(types.DialectYAMLLike, raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"osd.enabled"}, doc.Keys())

	out, err := doc.Set("osd.template", "fps")
	require.NoError(t, err)
	assert.Equal(t, "osd:\n  enabled: true\n  font:\n    size: 12\n  template: fps\n", Serialize(out))
}

func TestMalformed(t *testing.T) {
	cases := []struct {
		name    string
		dialect types.Dialect
		raw     string
	}{
		{"nul", types.DialectLineKV, "channel=1\x00\n"},
		{"unterminated header", types.DialectSectionedKV, "[common\nx=1\n"},
		{"empty header", types.DialectSectionedKV, "[ ]\n"},
		{"tab indent", types.DialectYAMLLike, "video0:\n\tfps: 30\n"},
		{"broken yaml", types.DialectYAMLLike, "video0:\n  fps: [30\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.dialect, tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestInvalidChanges(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "a=1\n")
	require.NoError(t, err)

	for _, ch := range []types.Change{
		{Key: "", Value: "x"},
		{Key: "a", Value: "1\nb=2"},
		{Key: "a=b", Value: "1"},
		{Key: "#a", Value: "1"},
	} {
		_, err := ApplyChanges(doc, []types.Change{ch})
		assert.ErrorIs(t, err, ErrInvalidChange, "%+v", ch)
	}
}

func TestYAMLLikeEmptyValueStaysAnEntry(t *testing.T) {
	doc, err := Parse(types.DialectYAMLLike, "video0:\n  fps: 30\n  codec: h265\n")
	require.NoError(t, err)

	changes := []types.Change{{Key: "video0.codec", Value: ""}}
	once, err := ApplyChanges(doc, changes)
	require.NoError(t, err)
	assert.Equal(t, "video0:\n  fps: 30\n  codec: \n", Serialize(once))

	fetched, err := Parse(types.DialectYAMLLike, Serialize(once))
	require.NoError(t, err)
	v, ok := fetched.Get("video0.codec")
	require.True(t, ok)
	assert.Equal(t, "", v)

	twice, err := ApplyChanges(fetched, changes)
	require.NoError(t, err)
	assert.Equal(t, Serialize(once), Serialize(twice))

	out, err := twice.Set("video0.codec", "h264")
	require.NoError(t, err)
	assert.Equal(t, "video0:\n  fps: 30\n  codec: h264\n", Serialize(out))
}

func TestYAMLLikeEmptyTopLevelScalar(t *testing.T) {
	for _, raw := range []string{"name: \nfps: 30\n", "name:\nfps: 30\n"} {
		doc, err := Parse(types.DialectYAMLLike, raw)
		require.NoError(t, err)
		assert.True(t, doc.Has("name"), raw)
		assert.Empty(t, doc.Sections())

		out, err := doc.Set("name", "drone")
		require.NoError(t, err)
		assert.Equal(t, "name: drone\nfps: 30\n", Serialize(out))
	}
}

func TestYAMLLikeChildUnderEmptyHeader(t *testing.T) {
	doc, err := Parse(types.DialectYAMLLike, "video0:\n")
	require.NoError(t, err)

	out, err := doc.Set("video0.fps", "60")
	require.NoError(t, err)
	assert.Equal(t, "video0:\n  fps: 60\n", Serialize(out))
	assert.Equal(t, []string{"video0.fps"}, out.Keys())
	assert.Equal(t, []string{"video0"}, out.Sections())
}

func TestYAMLLikeRejectsDuplicateKeys(t *testing.T) {
	_, err := Parse(types.DialectYAMLLike, "video0:\n  codec: h265\n  codec: h264\n")
	assert.ErrorIs(t, err, ErrMalformed)

	doc, err := Parse(types.DialectYAMLLike, majesticYAML)
	require.NoError(t, err)
	_, err = doc.Set("video0", "off")
	assert.ErrorIs(t, err, ErrInvalidChange)

	flat, err := Parse(types.DialectYAMLLike, "mode: fpv\n")
	require.NoError(t, err)
	_, err = flat.Set("mode.fps", "60")
	assert.ErrorIs(t, err, ErrInvalidChange)
}

func TestKVKeepsInlineComment(t *testing.T) {
	doc, err := Parse(types.DialectLineKV, "channel=149 # 5.8GHz\nname=\"a # b\"\ntag=a#b\nempty= # unset\n")
	require.NoError(t, err)

	v, _ := doc.Get("channel")
	assert.Equal(t, "149", v)
	v, _ = doc.Get("name")
	assert.Equal(t, `"a # b"`, v)
	v, _ = doc.Get("tag")
	assert.Equal(t, "a#b", v)
	v, ok := doc.Get("empty")
	require.True(t, ok)
	assert.Equal(t, "", v)

	out, err := ApplyChanges(doc, []types.Change{{Key: "channel", Value: "161"}, {Key: "empty", Value: "1"}})
	require.NoError(t, err)
	assert.Equal(t, "channel=161 # 5.8GHz\nname=\"a # b\"\ntag=a#b\nempty= 1 # unset\n", Serialize(out))

	sectioned, err := Parse(types.DialectSectionedKV, "[common]\nwifi_channel = 161 ; gs default\n")
	require.NoError(t, err)
	out, err = sectioned.Set("common.wifi_channel", "149")
	require.NoError(t, err)
	assert.Equal(t, "[common]\nwifi_channel = 149 ; gs default\n", Serialize(out))
}

func TestDottedGlobalKeysAreNotAddressable(t *testing.T) {
	doc, err := Parse(types.DialectSectionedKV, "a.b=1\n[a]\nb=2\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b"}, doc.Keys())
	v, _ := doc.Get("a.b")
	assert.Equal(t, "2", v)

	out, err := doc.Set("a.b", "3")
	require.NoError(t, err)
	assert.Equal(t, "a.b=1\n[a]\nb=3\n", Serialize(out))

	ydoc, err := Parse(types.DialectYAMLLike, "a.b: 1\na:\n  b: 2\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b"}, ydoc.Keys())
	v, _ = ydoc.Get("a.b")
	assert.Equal(t, "2", v)
}
