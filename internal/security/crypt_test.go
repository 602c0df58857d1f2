package security

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockParams struct {
	mock.Mock
}

func (m *mockParams) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(aws.ToString(in.Name), aws.ToBool(in.WithDecryption))
	out, _ := args.Get(0).(*ssm.GetParameterOutput)
	return out, args.Error(1)
}

var testKeyB64 = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

func TestCipherRoundTrip(t *testing.T) {
	key, err := LoadKeyFromBase64(testKeyB64)
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)

	enc, err := c.Encrypt("shpat_123")
	require.NoError(t, err)
	assert.NotContains(t, enc, "shpat_123")

	other, err := c.Encrypt("shpat_123")
	require.NoError(t, err)
	assert.NotEqual(t, enc, other, "nonce must differ per call")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", dec)
}

func TestCipherRejectsTampering(t *testing.T) {
	key, _ := LoadKeyFromBase64(testKeyB64)
	c, _ := NewCipher(key)

	_, err := c.Decrypt("AAAA")
	assert.Error(t, err)

	enc, _ := c.Encrypt("secret")
	raw, _ := base64.RawURLEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	_, err = c.Decrypt(base64.RawURLEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestLoadKeyFromBase64(t *testing.T) {
	_, err := LoadKeyFromBase64("not base64!")
	assert.Error(t, err)

	_, err = LoadKeyFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestLoadCipher(t *testing.T) {
	ctx := context.Background()

	t.Run("inline key wins", func(t *testing.T) {
		params := new(mockParams)
		c, err := LoadCipher(ctx, params, testKeyB64, "/ignored")
		require.NoError(t, err)
		assert.NotNil(t, c)
		params.AssertNotCalled(t, "GetParameter", mock.Anything, mock.Anything)
	})

	t.Run("parameter store", func(t *testing.T) {
		params := new(mockParams)
		params.On("GetParameter", "/orderdesk/key", true).Return(&ssm.GetParameterOutput{
			Parameter: &ssmtypes.Parameter{Value: aws.String(testKeyB64)},
		}, nil)

		c, err := LoadCipher(ctx, params, "", "/orderdesk/key")
		require.NoError(t, err)
		assert.NotNil(t, c)
		params.AssertExpectations(t)
	})

	t.Run("parameter error", func(t *testing.T) {
		params := new(mockParams)
		params.On("GetParameter", "/orderdesk/key", true).Return(nil, errors.New("denied"))

		_, err := LoadCipher(ctx, params, "", "/orderdesk/key")
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadCipher(ctx, nil, "", "")
		assert.ErrorIs(t, err, ErrNoKey)
	})
}
