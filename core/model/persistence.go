package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// Encode はモデルをgob形式でio.Writerに書き込む
//
// パラメータ:
//   - w: 書き込み先のWriter
//   - v: 保存するモデル（エクスポートされたフィールドのみが保存される）
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.Encode(&buf, pre)
func Encode(w io.Writer, v any) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrapf(err, "encode %T", v)
	}
	return nil
}

// Decode はio.Readerからgob形式のモデルを読み込む
//
// パラメータ:
//   - r: 読み込み元のReader
//   - v: 読み込み先のモデル（ポインタ）
func Decode(r io.Reader, v any) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %T", v)
	}
	return nil
}

// Marshal はモデルをgobのバイト列に変換する
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal はgobのバイト列からモデルを復元する
func Unmarshal(data []byte, v any) error {
	return Decode(bytes.NewReader(data), v)
}
