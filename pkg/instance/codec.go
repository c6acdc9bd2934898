package instance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/graphcut/pkg"
)

const bz2Ext = ".bz2"

func Decode(r io.Reader) (*Instance, error) {
	var inst Instance
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inst); err != nil {
		return nil, fmt.Errorf("%w: decode instance: %v", pkg.ErrInvalidArgument, err)
	}
	return &inst, nil
}

func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

// ReadFile reads a JSON instance, decompressing it first when the name ends in .bz2.
func ReadFile(filename string) (*Instance, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, bz2Ext) {
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, err
		}
		defer bz.Close()
		r = bz
	}
	return Decode(bufio.NewReader(r))
}

// WriteFile writes v as JSON, compressed when the name ends in .bz2.
func WriteFile(filename string, v any) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(filename, bz2Ext) {
		w := bufio.NewWriter(f)
		if err := Encode(w, v); err != nil {
			return err
		}
		return w.Flush()
	}

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	w := bufio.NewWriter(bz)
	if err := Encode(w, v); err != nil {
		bz.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}
