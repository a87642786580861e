// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math"
	"testing"
)

func TestMapOfNames(t *testing.T) {
	if MapOfNames["Float16"] != Float16 {
		t.Fatalf("expected MapOfNames[\"Float16\"] to be Float16, got %v", MapOfNames["Float16"])
	}
	if MapOfNames["float16"] != Float16 {
		t.Fatalf("expected MapOfNames[\"float16\"] to be Float16, got %v", MapOfNames["float16"])
	}
	if MapOfNames["bf16"] != BFloat16 {
		t.Fatalf("expected MapOfNames[\"bf16\"] to be BFloat16, got %v", MapOfNames["bf16"])
	}
	dtype, err := FromName("F32")
	if err != nil || dtype != Float32 {
		t.Fatalf("FromName(\"F32\") = %s, %v", dtype, err)
	}
	if _, err := FromName("float128"); err == nil {
		t.Fatal("expected error for unknown dtype name")
	}
}

func TestDType_String(t *testing.T) {
	if got := Float64.String(); got != "Float64" {
		t.Fatalf("Float64.String() = %q", got)
	}
	if got := DType(99).String(); got != "DType(99)" {
		t.Fatalf("DType(99).String() = %q", got)
	}
	if Int16.Size() != 2 || Complex128.Size() != 16 || InvalidDType.Size() != 0 {
		t.Fatal("unexpected DType sizes")
	}
	if FromAny(int32(3)) != Int32 || FromAny("x") != InvalidDType {
		t.Fatal("unexpected FromAny results")
	}
}

func TestEncodeFloat(t *testing.T) {
	type testCase struct {
		dtype DType
		value float64
		want  float64
		exact bool
	}
	for _, tc := range []testCase{
		{Float64, 0.1, 0.1, true},
		{Float32, 0.5, 0.5, true},
		{Float32, 0.1, float64(float32(0.1)), false},
		{Float16, 65504, 65504, true},
		{Float16, 1e6, math.Inf(1), false},
		{BFloat16, 1.0078125, 1.0078125, true},
		{BFloat16, 1.00390625, 1.0, false},
		{Int8, 300.7, 127, false},
		{Int8, -3.9, -3, false},
		{Int32, 42, 42, true},
		{Int64, -two63, math.MinInt64, true},
		{Int64, two63, math.MaxInt64, false},
		{Uint8, -5, 0, false},
		{Uint16, 65535, 65535, true},
		{Int32, math.NaN(), 0, false},
		{Uint32, math.NaN(), 0, false},
		{Bool, 2, 1, false},
		{Bool, 1, 1, true},
		{Bool, 0, 0, true},
	} {
		buf := make([]byte, 8)
		exact := EncodeFloat(tc.dtype, buf, tc.value)
		got := DecodeFloat(tc.dtype, buf)
		if got != tc.want || exact != tc.exact {
			t.Errorf("EncodeFloat(%s, %g): got %g (exact=%v), wanted %g (exact=%v)",
				tc.dtype, tc.value, got, exact, tc.want, tc.exact)
		}
	}
}

func TestEncodeInt(t *testing.T) {
	buf := make([]byte, 8)
	if EncodeInt(Int16, buf, 70000) || DecodeFloat(Int16, buf) != math.MaxInt16 {
		t.Fatalf("Int16 saturation failed: %g", DecodeFloat(Int16, buf))
	}
	if EncodeInt(Int16, buf, -70000) || DecodeFloat(Int16, buf) != math.MinInt16 {
		t.Fatalf("Int16 negative saturation failed: %g", DecodeFloat(Int16, buf))
	}
	if EncodeInt(Float32, buf, 1<<24+1) {
		t.Fatal("2^24+1 is not exactly representable in Float32")
	}
	if !EncodeInt(Float32, buf, 1<<24) {
		t.Fatal("2^24 is exactly representable in Float32")
	}
	if EncodeInt(Float64, buf, 1<<53+1) {
		t.Fatal("2^53+1 is not exactly representable in Float64")
	}
	if EncodeInt(Uint32, buf, -1) || DecodeFloat(Uint32, buf) != 0 {
		t.Fatal("negative to Uint32 should saturate to 0")
	}
	if !EncodeInt(Int64, buf, math.MinInt64) {
		t.Fatal("MinInt64 should be exact in Int64")
	}
}

func TestEncodeUint(t *testing.T) {
	buf := make([]byte, 8)
	if !EncodeUint(Uint64, buf, math.MaxUint64) {
		t.Fatal("MaxUint64 should be exact in Uint64")
	}
	if EncodeUint(Int64, buf, math.MaxUint64) || DecodeFloat(Int64, buf) != math.MaxInt64 {
		t.Fatal("MaxUint64 should saturate in Int64")
	}
	if !EncodeUint(Float64, buf, 1<<63) {
		t.Fatal("2^63 should be exact in Float64")
	}
	if !EncodeUint(Uint8, buf, 7) || DecodeFloat(Uint8, buf) != 7 {
		t.Fatal("small values should be exact")
	}
}
