package diskutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(name, args)
	out, _ := called.Get(0).(string)
	return []byte(out), called.Error(1)
}

func (m *mockRunner) Stream(ctx context.Context, onLine func(line string), name string, args ...string) ([]byte, error) {
	called := m.Called(name, args)
	out, _ := called.Get(0).(string)
	if len(called) > 2 {
		if lines, ok := called.Get(2).([]string); ok {
			for _, l := range lines {
				onLine(l)
			}
		}
	}
	return []byte(out), called.Error(1)
}

const lsblkJSON = `{
   "blockdevices": [
      {"name":"sda", "size":"931.5G", "model":"WDC WD10EZEX-08W", "vendor":"ATA     ", "type":"disk", "tran":"sata", "hctl":"0:0:0:0"},
      {"name":"sr0", "size":"1024M", "model":"DVD-RW", "vendor":null, "type":"rom", "tran":"sata", "hctl":"1:0:0:0"},
      {"name":"nvme0n1", "size":"465.8G", "model":"Samsung SSD 980", "vendor":null, "type":"disk", "tran":"nvme", "hctl":null},
      {"name":"loop0", "size":"55.4M", "model":null, "vendor":null, "type":"loop", "tran":null, "hctl":null}
   ]
}`

func TestEnumerateDevices(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	runner.On("Run", "lsblk", []string{"-J", "-d", "-o", "NAME,SIZE,MODEL,VENDOR,TYPE,TRAN,HCTL"}).
		Return(lsblkJSON, nil)

	devices, err := New(runner).EnumerateDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, BlockDevice{
		Name: "sda", Size: "931.5G", Model: "WDC WD10EZEX-08W", Vendor: "ATA", Type: "disk", Location: "0:0:0:0",
	}, devices[0])
	assert.Equal(t, "nvme0n1", devices[1].Name)
	assert.Equal(t, "nvme", devices[1].Location)
	assert.Empty(t, devices[1].Vendor)
	runner.AssertExpectations(t)
}

func TestEnumerateDevicesFailure(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name   string
		output string
		err    error
	}{
		{name: "command failed", output: "lsblk: not found", err: errors.New("exit status 127")},
		{name: "invalid json", output: "not json"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			runner := &mockRunner{}
			runner.On("Run", "lsblk", mock.Anything).Return(tc.output, tc.err)

			devices, err := New(runner).EnumerateDevices(context.Background())
			assert.Error(t, err)
			assert.Nil(t, devices)
		})
	}
}

func TestQueryIdentity(t *testing.T) {
	t.Parallel()

	info := "Device Model:     WDC WD10EZEX-08WN4A0\nSerial Number:    WD-WCC6Y0AAAAAA\n"

	t.Run("nonzero exit with output", func(t *testing.T) {
		t.Parallel()
		runner := &mockRunner{}
		runner.On("Run", "smartctl", []string{"-i", "/dev/sda"}).Return(info, errors.New("exit status 4"))

		id, err := New(runner).QueryIdentity(context.Background(), "sda")
		require.NoError(t, err)
		assert.Equal(t, "WD-WCC6Y0AAAAAA", id.Serial)
		assert.Equal(t, "WDC WD10EZEX-08WN4A0", id.Model)
	})

	t.Run("no output", func(t *testing.T) {
		t.Parallel()
		runner := &mockRunner{}
		runner.On("Run", "smartctl", []string{"-i", "/dev/sdb"}).Return("", errors.New("exec: not found"))

		id, err := New(runner).QueryIdentity(context.Background(), "sdb")
		assert.Error(t, err)
		assert.Nil(t, id)
	})
}

func TestCreateFilesystem(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		fs   string
		name string
		args []string
	}{
		{fs: "ext4", name: "mkfs.ext4", args: []string{"-F", "/dev/sdb"}},
		{fs: "xfs", name: "mkfs.xfs", args: []string{"-f", "/dev/sdb"}},
		{fs: "fat32", name: "mkfs.vfat", args: []string{"-F", "32", "/dev/sdb"}},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.fs, func(t *testing.T) {
			t.Parallel()
			runner := &mockRunner{}
			runner.On("Run", tc.name, tc.args).Return("done", nil)

			out, err := New(runner).CreateFilesystem(context.Background(), "sdb", tc.fs)
			require.NoError(t, err)
			assert.Equal(t, "done", out)
			runner.AssertExpectations(t)
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := New(&mockRunner{}).CreateFilesystem(context.Background(), "sdb", "btrfs")
		assert.Error(t, err)
	})

	// 模板不能被修改
	assert.Equal(t, []string{"mkfs.vfat", "-F", "32"}, Filesystems["fat32"])
}

func TestStartSelfTest(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	runner.On("Run", "smartctl", []string{"-t", "long", "/dev/sdc"}).Return("Testing has begun.", nil)

	out, err := New(runner).StartSelfTest(context.Background(), "sdc", "long")
	require.NoError(t, err)
	assert.Contains(t, out, "Testing has begun")

	_, err = New(runner).StartSelfTest(context.Background(), "sdc", "offline")
	assert.Error(t, err)
}

func TestScanBlock(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name   string
		output string
		good   bool
	}{
		{name: "clean", output: "", good: true},
		{name: "bad block", output: "17\n", good: false},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			runner := &mockRunner{}
			runner.On("Run", "badblocks", []string{"-b", "4096", "/dev/sdd", "17", "17"}).Return(tc.output, nil)

			good, err := New(runner).ScanBlock(context.Background(), "sdd", 4096, 17)
			require.NoError(t, err)
			assert.Equal(t, tc.good, good)
		})
	}
}

func TestScanBlocksStream(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	runner.On("Stream", "badblocks", []string{"-s", "-b", "4096", "/dev/sde", "255", "0"}).
		Return("Checking blocks 0 to 255\n3\n9\n", nil, []string{
			"Checking blocks 0 to 255",
			"12.50% done, 0:01 elapsed. (0/0/0 errors)",
			"57.03% done, 0:02 elapsed. (1/0/0 errors)",
			"100.00% done, 0:03 elapsed. (2/0/0 errors)",
		})

	var progress []int
	result, err := New(runner).ScanBlocksStream(context.Background(), "sde", 4096, 256, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{12, 57, 100}, progress)
	assert.Equal(t, []int{3, 9}, result.BadBlocks)
}

func TestDeviceByteSize(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	runner.On("Run", "blockdev", []string{"--getsize64", "/dev/sda"}).Return("1000204886016\n", nil)
	runner.On("Run", "blockdev", []string{"--getsize64", "/dev/sdz"}).Return("garbage", nil)

	size, err := New(runner).DeviceByteSize(context.Background(), "sda")
	require.NoError(t, err)
	assert.Equal(t, int64(1000204886016), size)

	_, err = New(runner).DeviceByteSize(context.Background(), "sdz")
	assert.Error(t, err)
}

func TestParsePercent(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		line string
		want int
		ok   bool
	}{
		{line: "45.67% done", want: 45, ok: true},
		{line: "  3% done, 0:00 elapsed", want: 3, ok: true},
		{line: "100.00% done", want: 100, ok: true},
		{line: "999% done", want: 100, ok: true},
		{line: "Checking blocks 0 to 255", ok: false},
		{line: "", ok: false},
	}

	for _, tc := range testcases {
		got, ok := ParsePercent(tc.line)
		assert.Equal(t, tc.ok, ok, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestDevicePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/dev/sda", DevicePath("sda"))
	assert.Equal(t, "/dev/disk/by-id/x", DevicePath("/dev/disk/by-id/x"))
}

func TestSupportedFilesystems(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"ext4", "fat32", "xfs"}, SupportedFilesystems())
	assert.True(t, IsSupportedFilesystem("xfs"))
	assert.False(t, IsSupportedFilesystem("ntfs"))
}
