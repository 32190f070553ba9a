package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateKeySeqControlAndMeta(t *testing.T) {
	seq, err := translateKeySeq(`\C-x\C-r`)
	require.NoError(t, err)
	require.Equal(t, []rune{rune(keyCtrlX), 'r' - 0x60}, seq)

	seq, err = translateKeySeq(`\M-f`)
	require.NoError(t, err)
	require.Equal(t, []rune{'f' | keyAlt}, seq)

	seq, err = translateKeySeq(`\M-\C-h`)
	require.NoError(t, err)
	require.Equal(t, []rune{('h' - 0x60) | keyAlt}, seq)
}

func TestTranslateKeySeqEscapes(t *testing.T) {
	seq, err := translateKeySeq(`\e`)
	require.NoError(t, err)
	require.Equal(t, []rune{keyEscape}, seq)

	seq, err = translateKeySeq(`\n\t`)
	require.NoError(t, err)
	require.Equal(t, []rune{'\n', '\t'}, seq)

	seq, err = translateKeySeq(`\d`)
	require.NoError(t, err)
	require.Equal(t, []rune{rune(keyBackspace)}, seq)
}

func TestTranslateKeySeqOctalAndHex(t *testing.T) {
	seq, err := translateKeySeq(`\101`)
	require.NoError(t, err)
	require.Equal(t, []rune{'A'}, seq)

	seq, err = translateKeySeq(`\x41`)
	require.NoError(t, err)
	require.Equal(t, []rune{'A'}, seq)
}

func TestTranslateKeySeqLiteral(t *testing.T) {
	seq, err := translateKeySeq(`ab`)
	require.NoError(t, err)
	require.Equal(t, []rune{'a', 'b'}, seq)
}

func TestTranslateKeySeqEmptyErrors(t *testing.T) {
	_, err := translateKeySeq(``)
	require.Error(t, err)
}

func TestCtrlFold(t *testing.T) {
	folded, ok := ctrlFold('a')
	require.True(t, ok)
	require.Equal(t, rune(1), folded)

	_, ok = ctrlFold(' ')
	require.False(t, ok)
}
