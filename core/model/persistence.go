package model

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// パラメータ:
//   - m: 保存する学習済みモデル
//   - filename: 保存先のファイルパス
//
// 戻り値:
//   - error: 未学習のモデルや書き込みに失敗した場合のエラー
//
// 使用例:
//
//	model, _ := naive_bayes.NewTrainer().TrainFrame(frame, "play")
//	err := model.SaveModel(model, "model.gob")
func SaveModel(m Snapshot, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := SaveModelToWriter(m, file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close file")
}

// LoadModel はファイルからモデルを読み込む
//
// パラメータ:
//   - m: 読み込み先のモデル（ポインタ）
//   - filename: 読み込み元のファイルパス
//
// 戻り値:
//   - error: 読み込みや検証に失敗した場合のエラー
//
// 使用例:
//
//	var m naive_bayes.Model
//	err := model.LoadModel(&m, "model.gob")
func LoadModel(m Snapshot, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m Snapshot, w io.Writer) error {
	if m == nil || !m.IsTrained() {
		return errors.NewModelNotTrainedError("SaveModel")
	}
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m Snapshot, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// MarshalModel はモデルを gob 形式のバイト列にする（ストアへの保存用）
func MarshalModel(m Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModelToWriter(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalModel は MarshalModel の出力を m に読み込む
func UnmarshalModel(m Snapshot, data []byte) error {
	return LoadModelFromReader(m, bytes.NewReader(data))
}
